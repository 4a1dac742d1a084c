package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainRepo "github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/repository"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// translate maps driver errors onto the domain repository errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainRepo.ErrNotFound
	case isUniqueViolation(err):
		return domainRepo.ErrDuplicate
	}
	return err
}
