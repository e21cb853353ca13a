package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chatrelay/internal/app/relay"
	"chatrelay/internal/app/store"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

// MaxHistoryLimit bounds the limit query parameter of the history endpoint.
const MaxHistoryLimit = 500

// HandlePresence returns the users currently online.
func HandlePresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := deps.Hub.Registry().Snapshot()

		online := make([]string, len(ids))
		for i, id := range ids {
			online[i] = id.String()
		}

		resp.RespondSuccess(w, r, relay.OnlineUsersPayload{OnlineUsers: online})
	}
}

// HandleGetMessages returns the conversation between the caller and peerId, oldest
// first, and marks the peer's messages to the caller as read.
func HandleGetMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if deps.Messages == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceDisabled))
			return
		}

		peerID := chi.URLParam(r, "peerId")
		if peerID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		limit := store.DefaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > MaxHistoryLimit {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			limit = n
		}

		messages, err := deps.Messages.FindMessages(r.Context(), payload.ID, peerID, int32(limit))
		if err != nil {
			logx.Error(err, "Failed to load conversation", "user_id", payload.ID, "peer_id", peerID)
			resp.RespondError(w, r, errs.NewError(errs.ErrDatabase))
			return
		}

		if _, err := deps.Messages.MarkRead(r.Context(), peerID, payload.ID); err != nil {
			logx.Error(err, "Failed to mark conversation read", "user_id", payload.ID, "peer_id", peerID)
		}

		resp.RespondSuccess(w, r, map[string]any{"messages": messages})
	}
}
