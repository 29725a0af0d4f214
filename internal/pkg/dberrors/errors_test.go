package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "event_registrations_event_profile_key"}
	wrapped := fmt.Errorf("insert: %w", dup)

	assert.True(t, IsDuplicateConstraintError(wrapped, "event_registrations_event_profile_key"))
	assert.True(t, IsDuplicateConstraintError(wrapped, ""))
	assert.False(t, IsDuplicateConstraintError(wrapped, "other_key"))
	assert.False(t, IsDuplicateConstraintError(errors.New("boom"), ""))
	assert.False(t, IsDuplicateConstraintError(&pgconn.PgError{Code: "23503"}, ""))
}

func TestIsForeignKeyError(t *testing.T) {
	assert.True(t, IsForeignKeyError(fmt.Errorf("x: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, IsForeignKeyError(&pgconn.PgError{Code: "23505"}))
}
