package conversation

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "23505", Message: "duplicate key"}), ErrExists)
	assert.ErrorIs(t, mapError(&pq.Error{Code: "23503", Message: "fk"}), ErrNotFound)

	other := errors.New("connection reset")
	err := mapError(other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrNotFound)
}
