package dbx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "links_pkey"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsUniqueViolation(fmt.Errorf("db error: %w", unique)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23514"}))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsConstraintViolation(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"23505", true},
		{"23514", true},
		{"23502", true},
		{"22003", true},
		{"08006", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConstraintViolation(&pgconn.PgError{Code: tt.code}))
		})
	}
	assert.False(t, IsConstraintViolation(errors.New("plain")))
}

func TestConstraintName(t *testing.T) {
	assert.Equal(t, "links_pkey", ConstraintName(&pgconn.PgError{Code: "23505", ConstraintName: "links_pkey"}))
	assert.Equal(t, "", ConstraintName(errors.New("plain")))
}
