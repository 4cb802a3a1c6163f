package extracts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a := New("d1", "stock.xlsx", "xlsx", 120, 3, 42)
	b := New("d1", "stock.xlsx", "xlsx", 120, 3, 42)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "d1", a.Digest)
	assert.Equal(t, 120, a.Rows)
	assert.Equal(t, 3, a.InvalidDates)
	assert.Equal(t, int64(42), a.UploadedBy)
	assert.True(t, a.CreatedAt.IsZero())
}
