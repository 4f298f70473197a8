package pg

import (
	"context"
	"errors"
)

const schemaQuery = `SELECT to_regclass('notification_kv') IS NOT NULL`

// Healthcheck reports the database as ready once it answers and the
// notification_kv table exists, i.e. Migrate has run.
func Healthcheck(db DB) func(context.Context) error {
	return func(ctx context.Context) error {
		var ok bool
		if err := db.QueryRow(ctx, schemaQuery).Scan(&ok); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if !ok {
			return errors.Join(ErrHealthcheckFailed, ErrSchemaMissing)
		}
		return nil
	}
}
