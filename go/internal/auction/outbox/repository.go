package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/devpatel10/gully/go/internal/sqlutil"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the worker can run
// fetch and mark inside one transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db dbtx
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a Repository bound to the given transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

const insertOutboxEvent = `
INSERT INTO auction_outbox (id, league_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, NOW())
`

func (r *Repository) insert(ctx context.Context, leagueID uuid.UUID, eventType string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, insertOutboxEvent, uuid.New(), leagueID, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

func (r *Repository) InsertOutboxAuctionStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return r.insert(ctx, leagueID, EventAuctionStarted, payload)
}

func (r *Repository) InsertOutboxWindowOpened(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return r.insert(ctx, leagueID, EventWindowOpened, payload)
}

func (r *Repository) InsertOutboxWindowClosed(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return r.insert(ctx, leagueID, EventWindowClosed, payload)
}

func (r *Repository) InsertOutboxRoundStarted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return r.insert(ctx, leagueID, EventRoundStarted, payload)
}

func (r *Repository) InsertOutboxBidPlaced(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return r.insert(ctx, leagueID, EventBidPlaced, payload)
}

func (r *Repository) InsertOutboxRoundResolved(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return r.insert(ctx, leagueID, EventRoundResolved, payload)
}

func (r *Repository) InsertOutboxRoundSkipped(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return r.insert(ctx, leagueID, EventRoundSkipped, payload)
}

func (r *Repository) InsertOutboxAuctionCompleted(ctx context.Context, leagueID uuid.UUID, payload []byte) error {
	return r.insert(ctx, leagueID, EventAuctionCompleted, payload)
}

const fetchUnsentOutbox = `
SELECT id, league_id, event_type, payload, created_at
FROM auction_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED
`

func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var (
			ev      OutboxEvent
			payload pqtype.NullRawMessage
		)
		if err := rows.Scan(&ev.ID, &ev.LeagueID, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		if payload.Valid {
			ev.Payload = payload.RawMessage
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox events: %w", err)
	}

	return events, nil
}

const markOutboxSent = `
UPDATE auction_outbox
SET sent_at = NOW()
WHERE id = ANY($1)
`

func (r *Repository) MarkOutboxSent(ctx context.Context, ids []uuid.UUID) error {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	if _, err := r.db.ExecContext(ctx, markOutboxSent, pq.Array(strIDs)); err != nil {
		return fmt.Errorf("failed to mark outbox events as sent: %w", err)
	}
	return nil
}

const fetchOutboxByID = `
SELECT id, league_id, event_type, payload, created_at, sent_at
FROM auction_outbox
WHERE id = $1
`

func (r *Repository) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	var (
		ev      OutboxEvent
		payload pqtype.NullRawMessage
		sentAt  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, fetchOutboxByID, id).
		Scan(&ev.ID, &ev.LeagueID, &ev.EventType, &payload, &ev.CreatedAt, &sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outbox event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event by ID: %w", err)
	}
	if payload.Valid {
		ev.Payload = payload.RawMessage
	}
	ev.SentAt = sqlutil.FromSqlTime(sentAt)
	return &ev, nil
}
