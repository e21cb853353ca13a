package relay

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/app/store"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/randx"
)

const (
	archiveQueueSize  = 256
	archiveTimeout    = 5 * time.Second
	archiveAttempts   = 3
	archiveRetryDelay = 50 * time.Millisecond
)

// MessageStore is the persistence collaborator used by the archiver.
type MessageStore interface {
	CreateMessage(ctx context.Context, arg store.NewMessage) (store.Message, error)
	MarkRead(ctx context.Context, sender, reader string) (int64, error)
}

type archiveJob func(ctx context.Context, s MessageStore) error

// Archiver persists routed chat messages and read receipts on its own goroutine,
// so the hub never waits on the database. Jobs are dropped when the queue is full.
type Archiver struct {
	store  MessageStore
	jobs   chan archiveJob
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	failed atomic.Int64
	logger zerolog.Logger
}

// NewArchiver starts the worker goroutine.
func NewArchiver(s MessageStore) *Archiver {
	a := &Archiver{
		store:  s,
		jobs:   make(chan archiveJob, archiveQueueSize),
		logger: logx.Component("Archiver"),
	}

	a.wg.Add(1)
	go a.run()

	return a
}

func (a *Archiver) run() {
	defer a.wg.Done()

	for job := range a.jobs {
		a.runJob(job)
	}
}

// runJob tries job up to archiveAttempts times. A job whose earlier attempt
// timed out after committing is seen again on retry, so jobs must be idempotent.
func (a *Archiver) runJob(job archiveJob) {
	var err error
	for attempt := 1; attempt <= archiveAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		err = job(ctx, a.store)
		cancel()

		if err == nil {
			return
		}
		if attempt < archiveAttempts {
			a.logger.Warn().Err(err).Int("attempt", attempt).Msg("Archive job failed, retrying.")
			time.Sleep(time.Duration(attempt) * archiveRetryDelay)
		}
	}

	a.failed.Add(1)
	a.logger.Error().Err(err).Int("attempts", archiveAttempts).Msg("Archive job failed.")
}

// Failed returns how many jobs were given up on.
func (a *Archiver) Failed() int64 {
	return a.failed.Load()
}

// ArchiveMessage queues a routed chat message. Delivered messages are stored
// as delivered, the rest as sent (pending for the recipient).
func (a *Archiver) ArchiveMessage(env Envelope, delivered bool) bool {
	msg := store.NewMessage{
		ID:         randx.MessageID(),
		SenderID:   env.From.ID.String(),
		ReceiverID: env.To.String(),
		Type:       env.MessageType,
		Body:       messageText(env.Body),
		Status:     store.StatusSent,
	}
	if delivered {
		msg.Status = store.StatusDelivered
	}

	return a.enqueue(func(ctx context.Context, s MessageStore) error {
		_, err := s.CreateMessage(ctx, msg)
		if store.IsUniqueViolation(err) {
			a.logger.Debug().Str("message_id", msg.ID.String()).Msg("Message already archived.")
			return nil
		}
		return err
	})
}

// ArchiveRead queues marking sender's messages to reader as read.
func (a *Archiver) ArchiveRead(sender, reader string) bool {
	return a.enqueue(func(ctx context.Context, s MessageStore) error {
		n, err := s.MarkRead(ctx, sender, reader)
		if err != nil {
			return err
		}
		a.logger.Debug().Str("sender", sender).Str("reader", reader).Int64("rows", n).Msg("Messages marked read.")
		return nil
	})
}

func (a *Archiver) enqueue(job archiveJob) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return false
	}

	select {
	case a.jobs <- job:
		return true
	default:
		a.logger.Warn().Int("queue", cap(a.jobs)).Msg("Archive queue full, dropping job.")
		return false
	}
}

// Stop rejects new jobs and waits for the queued ones to finish.
func (a *Archiver) Stop() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()

	a.wg.Wait()
}

// messageText unwraps a JSON string; other JSON values are stored as written.
func messageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
