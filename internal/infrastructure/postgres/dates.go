package postgres

import (
	"database/sql"

	"cloud.google.com/go/civil"
)

// civil.Date is not a driver.Valuer; DATE parameters are sent as ISO text
// and come back from lib/pq as time.Time.

func dateArg(d civil.Date) string {
	return d.String()
}

func nullDateArg(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDate(t sql.NullTime) *civil.Date {
	if !t.Valid {
		return nil
	}
	d := civil.DateOf(t.Time)
	return &d
}
