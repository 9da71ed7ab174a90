package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"zentra/internal/apperr"
	"zentra/internal/gateway/middleware"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10
	chatWSReadLimit = 64 << 10
)

type chatWSInbound struct {
	Message string `json:"message"`
}

type chatWSOutbound struct {
	Reply   string `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ChatWS serves chat over a websocket: each {"message"} frame gets exactly
// one {"reply"} or {"error","message"} frame, in order.
func (h *Handler) ChatWS(w http.ResponseWriter, r *http.Request) {
	ident, err := middleware.CallerIdentity(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(chatWSReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		h.logger.WarnContext(ctx, "chat ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	writeCh := make(chan chatWSOutbound, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		var in chatWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		reply, err := h.advisor.Chat(ctx, ident.UserID, in.Message)
		out := chatWSOutbound{Reply: reply}
		if err != nil {
			out = chatWSOutbound{Error: string(apperr.CodeOf(err)), Message: apperr.PublicMessage(err)}
		}
		select {
		case writeCh <- out:
		case <-ctx.Done():
			<-writerDone
			return
		}
		// No pongs are read while the model runs.
		_ = conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	}
}
