package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatrelay/internal/app/relay"
	"chatrelay/internal/app/user"
	"chatrelay/internal/pkg/auth/jwt"
	"chatrelay/internal/pkg/errs"
	"chatrelay/internal/pkg/limiter"
	"chatrelay/internal/pkg/logx"
	"chatrelay/internal/pkg/resp"
)

// HandleWebSocket upgrades the request and runs the client until the socket closes.
// The client announces itself with add-user afterwards; a token, when present,
// fixes which user it may announce.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		opts := relay.ClientOptions{
			EventRate:  deps.Config.EventRate,
			EventBurst: deps.Config.EventBurst,
		}

		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			opts.Identity = user.ID(payload.ID)
		} else if deps.Config.RequireAuth {
			logx.Info("WebSocket connection rejected: No identity token.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := relay.NewClient(deps.Hub, conn, opts)

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "user_id", opts.Identity.String())

		client.ReadPump()
	}
}
