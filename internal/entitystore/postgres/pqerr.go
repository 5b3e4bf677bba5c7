package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// pqErrorCode extracts the SQLSTATE code from err, or "" if err is not a
// *pq.Error.
func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
