package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestUpload_AndDownload(t *testing.T) {
	s := NewInMemoryBlobStore()
	ctx := context.Background()

	meta, err := s.Upload(ctx, BlobMetadata{
		FileName:    "ordonnance.pdf",
		ContentType: "application/pdf",
		PatientID:   "p1",
		Category:    "prescription",
	}, strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if meta.Size != int64(len("%PDF-1.4 fake")) {
		t.Errorf("unexpected size %d", meta.Size)
	}
	if meta.Hash == "" {
		t.Error("expected hash to be computed")
	}

	rc, got, err := s.Download(ctx, meta.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.4 fake" {
		t.Errorf("unexpected content: %s", data)
	}
	if got.FileName != "ordonnance.pdf" {
		t.Errorf("unexpected file name: %s", got.FileName)
	}
}

func TestUpload_RejectsDisallowedContentType(t *testing.T) {
	s := NewInMemoryBlobStore()
	_, err := s.Upload(context.Background(), BlobMetadata{
		FileName:    "malware.exe",
		ContentType: "application/octet-stream",
		PatientID:   "p1",
	}, strings.NewReader("MZ"))
	if !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("expected ErrInvalidAttachment, got %v", err)
	}
}

func TestUpload_RejectsOversizedContent(t *testing.T) {
	s := NewInMemoryBlobStore()
	big := bytes.Repeat([]byte("a"), MaxFileSize+1)
	_, err := s.Upload(context.Background(), BlobMetadata{
		FileName:    "scan.png",
		ContentType: "image/png",
		PatientID:   "p1",
	}, bytes.NewReader(big))
	if !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("expected ErrInvalidAttachment, got %v", err)
	}
}

func TestUpload_RejectsMissingFileName(t *testing.T) {
	s := NewInMemoryBlobStore()
	_, err := s.Upload(context.Background(), BlobMetadata{
		ContentType: "image/png",
		PatientID:   "p1",
	}, strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("expected ErrInvalidAttachment, got %v", err)
	}
}

func TestValidateUpload_SizeCeiling(t *testing.T) {
	if err := ValidateUpload("a.png", "image/png", MaxFileSize); err != nil {
		t.Errorf("exact limit should pass: %v", err)
	}
	if err := ValidateUpload("a.png", "image/png", MaxFileSize+1); !errors.Is(err, ErrInvalidAttachment) {
		t.Errorf("expected ErrInvalidAttachment, got %v", err)
	}
}

func TestListByPatient_FiltersByCategory(t *testing.T) {
	s := NewInMemoryBlobStore()
	ctx := context.Background()

	s.Upload(ctx, BlobMetadata{FileName: "a.png", ContentType: "image/png", PatientID: "p1", Category: "prescription"}, strings.NewReader("a"))
	s.Upload(ctx, BlobMetadata{FileName: "b.png", ContentType: "image/png", PatientID: "p1", Category: "insurance-card"}, strings.NewReader("b"))
	s.Upload(ctx, BlobMetadata{FileName: "c.png", ContentType: "image/png", PatientID: "p2", Category: "prescription"}, strings.NewReader("c"))

	items, total, err := s.ListByPatient(ctx, "p1", "prescription", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 blob, got %d", total)
	}
	if items[0].FileName != "a.png" {
		t.Errorf("unexpected file: %s", items[0].FileName)
	}
}

func TestDelete_MissingBlob(t *testing.T) {
	s := NewInMemoryBlobStore()
	if err := s.Delete(context.Background(), "missing"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}
