package extracts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Save stores e and fills CreatedAt from the database.
func (r *Repo) Save(ctx context.Context, e *Extract) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO extracts (id, digest, file_name, format, row_count, invalid_dates, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, e.ID, e.Digest, e.FileName, e.Format, e.Rows, e.InvalidDates, e.UploadedBy).Scan(&e.CreatedAt)
}

// LatestByUser returns nil, nil when the user has never uploaded.
func (r *Repo) LatestByUser(ctx context.Context, tgID int64) (*Extract, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, digest, file_name, format, row_count, invalid_dates, uploaded_by, created_at
		FROM extracts WHERE uploaded_by = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, tgID)

	var e Extract
	if err := row.Scan(&e.ID, &e.Digest, &e.FileName, &e.Format, &e.Rows, &e.InvalidDates, &e.UploadedBy, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
