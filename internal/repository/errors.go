package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicate indicates a unique constraint rejected the write.
var ErrDuplicate = errors.New("record already exists")

// isUniqueViolation recognises duplicate keys from both the translated gorm
// error and the raw postgres error code.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func translateWriteError(err error) error {
	if err != nil && isUniqueViolation(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
