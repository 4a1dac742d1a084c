package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

func TestTranslate(t *testing.T) {
	other := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"nil", nil, nil},
		{"not found", gorm.ErrRecordNotFound, domainRepo.ErrNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), domainRepo.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, domainRepo.ErrDuplicate},
		{"other pg error", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, nil},
		{"other", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			if tt.name == "other pg error" {
				assert.False(t, errors.Is(got, domainRepo.ErrDuplicate))
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}
