package pgdb

import (
	"context"

	"github.com/Egor213/JewelCRM/internal/domain"
	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
	"github.com/Egor213/JewelCRM/pkg/postgres"
)

type EventLogRepo struct {
	*postgres.Postgres
}

func NewEventLogRepo(pg *postgres.Postgres) *EventLogRepo {
	return &EventLogRepo{pg}
}

// InsertLogEntries stores a flushed batch with a single multi-row insert.
func (r *EventLogRepo) InsertLogEntries(ctx context.Context, entries []domain.LogEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	query := r.Builder.
		Insert("event_logs").
		Columns("level", "message", "request_id", "user_id", "session_id",
			"method", "path", "duration_ms", "metadata", "error", "logged_at")

	for _, e := range entries {
		var durationMs *int64
		if e.Duration > 0 {
			ms := e.Duration.Milliseconds()
			durationMs = &ms
		}
		var metadata map[string]any
		if len(e.Metadata) > 0 {
			metadata = e.Metadata
		}
		query = query.Values(string(e.Level), e.Message, e.RequestID, e.UserID, e.SessionID,
			e.Method, e.Path, durationMs, metadata, e.Error, e.Timestamp)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, errorsUtils.WrapPathErr(err)
	}

	tag, err := r.CtxGetter.DefaultTrOrDB(ctx, r.Pool).Exec(ctx, sql, args...)
	if err != nil {
		return 0, errorsUtils.WrapPathErr(err)
	}
	return tag.RowsAffected(), nil
}
