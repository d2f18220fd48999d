package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/vyasa-labs/granthika/model"
)

// Postgres error codes mapped to the store's error taxonomy.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
	pqConnectionException = "08"
)

// mapWriteError translates driver errors from writes into the model's
// sentinel errors. Foreign key violations mean the referenced entity does
// not exist, span check violations mean the mention span is malformed, and
// the active-session unique index means a second session was started.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqForeignKeyViolation:
			return model.ErrUnknownEntity
		case pqCheckViolation:
			if pqErr.Constraint == "mentions_span_check" {
				return model.ErrInvalidSpan
			}
		case pqUniqueViolation:
			if pqErr.Constraint == "uq_active_session" {
				return model.ErrSessionAlreadyActive
			}
		}
		if len(pqErr.Code) >= 2 && string(pqErr.Code[:2]) == pqConnectionException {
			return model.ErrStorageUnavailable
		}
		return err
	}

	if errors.Is(err, sql.ErrConnDone) {
		return model.ErrStorageUnavailable
	}

	return err
}
