package impl

import (
	"context"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/custodix/go-metarelay/pkg/audit"
	"github.com/custodix/go-metarelay/pkg/database"
	"github.com/custodix/go-metarelay/pkg/database/db"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StoreLogger persists audit entries in sqlite.
type StoreLogger struct {
	log      zerolog.Logger
	sqliteDB *database.SQLiteDB
}

var _ audit.Logger = (*StoreLogger)(nil)

// NewStoreLogger creates a store-backed audit logger.
func NewStoreLogger(sqliteDB *database.SQLiteDB) *StoreLogger {
	log := sqliteDB.Log.With().
		Str("component", "audit").
		Logger()

	return &StoreLogger{
		log:      log,
		sqliteDB: sqliteDB,
	}
}

// Create records an audit entry.
func (l *StoreLogger) Create(ctx context.Context, entry audit.Entry) error {
	metadata := "{}"
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Errorf("encoding audit metadata: %s", err)
		}
		metadata = string(encoded)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return errors.Errorf("generating audit entry id: %s", err)
	}

	if err := l.sqliteDB.Queries.InsertAuditLog(ctx, db.InsertAuditLogParams{
		ID:          id.String(),
		Action:      entry.Action,
		PerformedBy: entry.PerformedBy,
		TargetID:    entry.TargetID,
		TargetType:  entry.TargetType,
		TenantID:    entry.TenantID,
		Metadata:    metadata,
	}); err != nil {
		return errors.Errorf("audit store insert: %s", err)
	}

	l.log.Debug().
		Str("action", entry.Action).
		Str("performedBy", entry.PerformedBy).
		Str("targetId", entry.TargetID).
		Msg("audit entry recorded")

	return nil
}
