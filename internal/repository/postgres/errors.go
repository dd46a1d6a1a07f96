package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// postgres unique_violation SQLSTATE, per
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a lib/pq unique-constraint
// violation, the signal repositories use to turn a duplicate insert into
// ierr.ErrAlreadyExists instead of a generic ErrSystem.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
