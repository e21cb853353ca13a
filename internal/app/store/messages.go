// Package store persists chat messages in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Status is the delivery state of a stored message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// DefaultHistoryLimit caps FindMessages when the caller passes no limit.
const DefaultHistoryLimit = 100

// Message is a stored chat message.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Type       string    `json:"type"`
	Body       string    `json:"message"`
	Status     Status    `json:"messageStatus"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewMessage is the input of CreateMessage.
type NewMessage struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Type       string
	Body       string
	Status     Status
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the message statements against a DBTX.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const createMessage = `
INSERT INTO messages (id, sender_id, receiver_id, type, body, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, sender_id, receiver_id, type, body, status, created_at`

// CreateMessage inserts a message. A zero ID is replaced with a random one.
func (q *Queries) CreateMessage(ctx context.Context, arg NewMessage) (Message, error) {
	if arg.ID == uuid.Nil {
		arg.ID = uuid.New()
	}
	if arg.Type == "" {
		arg.Type = "text"
	}
	if arg.Status == "" {
		arg.Status = StatusSent
	}

	row := q.db.QueryRow(ctx, createMessage,
		pgtype.UUID{Bytes: arg.ID, Valid: true},
		arg.SenderID,
		arg.ReceiverID,
		arg.Type,
		arg.Body,
		string(arg.Status),
	)

	m, err := scanMessage(row)
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}
	return m, nil
}

const findMessages = `
SELECT id, sender_id, receiver_id, type, body, status, created_at FROM (
    SELECT id, sender_id, receiver_id, type, body, status, created_at
    FROM messages
    WHERE (sender_id = $1 AND receiver_id = $2)
       OR (sender_id = $2 AND receiver_id = $1)
    ORDER BY created_at DESC
    LIMIT $3
) recent
ORDER BY created_at ASC`

// FindMessages returns the latest messages exchanged between a and b, oldest first.
func (q *Queries) FindMessages(ctx context.Context, a, b string, limit int32) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := q.db.Query(ctx, findMessages, a, b, limit)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer rows.Close()

	items := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return items, nil
}

const markRead = `
UPDATE messages SET status = 'read'
WHERE sender_id = $1 AND receiver_id = $2 AND status <> 'read'`

// MarkRead marks every message sender sent to reader as read and returns how
// many rows changed.
func (q *Queries) MarkRead(ctx context.Context, sender, reader string) (int64, error) {
	tag, err := q.db.Exec(ctx, markRead, sender, reader)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		id        pgtype.UUID
		status    string
		createdAt pgtype.Timestamptz
		m         Message
	)
	if err := row.Scan(&id, &m.SenderID, &m.ReceiverID, &m.Type, &m.Body, &status, &createdAt); err != nil {
		return Message{}, err
	}
	m.ID = uuid.UUID(id.Bytes)
	m.Status = Status(status)
	m.CreatedAt = createdAt.Time
	return m, nil
}
