package prescription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

const prescriptionCols = `id, patient_id, professional_id, issued_at, expires_at, status,
	medications,
	attachment_file_name, attachment_content_type, attachment_size,
	attachment_blob_id, attachment_verified,
	created_at, updated_at`

func (r *prescriptionRepoPG) scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var fileName, contentType, blobID *string
	var size *int64
	var verified *bool
	err := row.Scan(&p.ID, &p.PatientID, &p.ProfessionalID, &p.IssuedAt, &p.ExpiresAt, &p.Status,
		&p.Medications,
		&fileName, &contentType, &size,
		&blobID, &verified,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}
	if blobID != nil {
		p.Attachment = &Attachment{BlobID: *blobID}
		if fileName != nil {
			p.Attachment.FileName = *fileName
		}
		if contentType != nil {
			p.Attachment.ContentType = *contentType
		}
		if size != nil {
			p.Attachment.Size = *size
		}
		if verified != nil {
			p.Attachment.Verified = *verified
		}
	}
	return &p, nil
}

func attachmentFields(p *Prescription) (fileName, contentType *string, size *int64, blobID *string, verified *bool) {
	if p.Attachment == nil {
		return nil, nil, nil, nil, nil
	}
	a := p.Attachment
	return &a.FileName, &a.ContentType, &a.Size, &a.BlobID, &a.Verified
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	fileName, contentType, size, blobID, verified := attachmentFields(p)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prescription (id, patient_id, professional_id, issued_at, expires_at, status,
			medications,
			attachment_file_name, attachment_content_type, attachment_size,
			attachment_blob_id, attachment_verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.PatientID, p.ProfessionalID, p.IssuedAt, p.ExpiresAt, p.Status,
		p.Medications,
		fileName, contentType, size, blobID, verified)
	return err
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.scanPrescription(r.pool.QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	fileName, contentType, size, blobID, verified := attachmentFields(p)
	tag, err := r.pool.Exec(ctx, `
		UPDATE prescription SET status=$2, expires_at=$3, medications=$4,
			attachment_file_name=$5, attachment_content_type=$6, attachment_size=$7,
			attachment_blob_id=$8, attachment_verified=$9,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.ExpiresAt, p.Medications,
		fileName, contentType, size, blobID, verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPrescriptionNotFound
	}
	return nil
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM prescription WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPrescriptionNotFound
	}
	return nil
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID, status string, limit, offset int) ([]*Prescription, int, error) {
	cond := `patient_id = $1`
	args := []interface{}{patientID}
	if status != "" {
		cond += ` AND status = $2`
		args = append(args, status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescription WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM prescription WHERE %s ORDER BY issued_at DESC LIMIT $%d OFFSET $%d`,
		prescriptionCols, cond, n+1, n+2)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := r.scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}
