package handler

import (
	"context"

	"chatrelay/internal/app/relay"
	"chatrelay/internal/app/storage"
	"chatrelay/internal/app/store"
	"chatrelay/internal/configs"
)

// MessageHistory is the part of the message store the HTTP API reads.
type MessageHistory interface {
	FindMessages(ctx context.Context, a, b string, limit int32) ([]store.Message, error)
	MarkRead(ctx context.Context, sender, reader string) (int64, error)
}

// AppDeps carries the collaborators shared by all handlers. StorageService and
// Messages are nil when media storage or persistence is not configured.
type AppDeps struct {
	Hub            *relay.Hub
	Config         *configs.AppConfig
	StorageService storage.StorageService
	Messages       MessageHistory
}
