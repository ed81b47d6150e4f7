/*
Package handler provides the HTTP handlers and routing setup for the
collaboration relay.

This file contains HandleWebSocket, which rate limits and admits incoming
connections, verifies the identity token when one is presented, upgrades the
connection, and starts the client lifecycle. Room membership is not decided
here: a connection joins a room only through a subsequent join event.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"collabrelay/internal/app/relay"
	"collabrelay/internal/pkg/auth/jwt"
	"collabrelay/internal/pkg/errs"
	"collabrelay/internal/pkg/limiter"
	"collabrelay/internal/pkg/logx"
	"collabrelay/internal/pkg/resp"
)

// HandleWebSocket creates the HandlerFunc processing websocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		// Browsers cannot set headers on websocket upgrades, so the identity
		// token arrives as a query parameter.
		var claims *jwt.Payload

		token := r.URL.Query().Get("token")
		if token != "" {
			claims, err = jwt.ParseToken(token, deps.Config.JWTSecret)
			if err != nil {
				logx.Warn("WebSocket connection rejected: Invalid identity token.", "error", err.Error())
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
		} else if !deps.Config.AllowAnonymous {
			logx.Warn("WebSocket connection rejected: Missing identity token.")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := relay.NewClient(deps.Manager, conn, claims, deps.Membership)
		deps.Manager.Register(client)

		go client.WritePump()

		logx.Info("WebSocket connection established", "connection_id", client.ID())

		client.ReadPump()
	}
}
