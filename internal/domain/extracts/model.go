package extracts

import (
	"time"

	"github.com/google/uuid"
)

// Extract is the audit record of one accepted upload.
type Extract struct {
	ID           uuid.UUID
	Digest       string
	FileName     string
	Format       string
	Rows         int
	InvalidDates int
	UploadedBy   int64
	CreatedAt    time.Time
}

func New(digest, fileName, format string, rows, invalidDates int, uploadedBy int64) Extract {
	return Extract{
		ID:           uuid.New(),
		Digest:       digest,
		FileName:     fileName,
		Format:       format,
		Rows:         rows,
		InvalidDates: invalidDates,
		UploadedBy:   uploadedBy,
	}
}
