package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productRepoPG struct{ pool *pgxpool.Pool }

func NewProductRepoPG(pool *pgxpool.Pool) ProductRepository {
	return &productRepoPG{pool: pool}
}

const productCols = `id, name, description, unit_price, category,
	requires_prescription, in_stock,
	insurance_eligible, coverage_percentage, requires_voucher,
	created_at, updated_at`

func (r *productRepoPG) scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var eligible bool
	var coveragePct *float64
	var requiresVoucher *bool
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.UnitPrice, &p.Category,
		&p.RequiresPrescription, &p.InStock,
		&eligible, &coveragePct, &requiresVoucher,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if eligible || coveragePct != nil || requiresVoucher != nil {
		p.Coverage = &InsuranceCoverage{
			Eligible:           eligible,
			CoveragePercentage: coveragePct,
			RequiresVoucher:    requiresVoucher,
		}
	}
	return &p, nil
}

func coverageFields(p *Product) (bool, *float64, *bool) {
	if p.Coverage == nil {
		return false, nil, nil
	}
	return p.Coverage.Eligible, p.Coverage.CoveragePercentage, p.Coverage.RequiresVoucher
}

func (r *productRepoPG) Create(ctx context.Context, p *Product) error {
	p.ID = uuid.New()
	eligible, coveragePct, requiresVoucher := coverageFields(p)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO product (id, name, description, unit_price, category,
			requires_prescription, in_stock,
			insurance_eligible, coverage_percentage, requires_voucher)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Name, p.Description, p.UnitPrice, p.Category,
		p.RequiresPrescription, p.InStock,
		eligible, coveragePct, requiresVoucher)
	return err
}

func (r *productRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return r.scanProduct(r.pool.QueryRow(ctx, `SELECT `+productCols+` FROM product WHERE id = $1`, id))
}

func (r *productRepoPG) Update(ctx context.Context, p *Product) error {
	eligible, coveragePct, requiresVoucher := coverageFields(p)
	tag, err := r.pool.Exec(ctx, `
		UPDATE product SET name=$2, description=$3, unit_price=$4, category=$5,
			requires_prescription=$6, in_stock=$7,
			insurance_eligible=$8, coverage_percentage=$9, requires_voucher=$10,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.UnitPrice, p.Category,
		p.RequiresPrescription, p.InStock,
		eligible, coveragePct, requiresVoucher)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Product, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.Query != "" {
		where = append(where, "name ILIKE "+arg("%"+f.Query+"%"))
	}
	if f.RequiresPrescription != nil {
		where = append(where, "requires_prescription = "+arg(*f.RequiresPrescription))
	}
	if f.InStock != nil {
		where = append(where, "in_stock = "+arg(*f.InStock))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM product WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productCols + ` FROM product WHERE ` + cond +
		` ORDER BY name ASC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}
