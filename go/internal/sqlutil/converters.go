package sqlutil

import (
	"database/sql"
	"time"
)

// FromSqlTime converts sql.NullTime to a Go time pointer
func FromSqlTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	return &val.Time
}
