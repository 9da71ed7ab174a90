// Package handler exposes the advisor over JSON HTTP and a chat websocket.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"zentra/internal/gateway/entity"
	"zentra/internal/gateway/middleware"
	"zentra/internal/gateway/service/advisor"
	"zentra/internal/logging"
)

// Advisor is the service surface the handlers call.
type Advisor interface {
	SubmitAnswers(ctx context.Context, userID entity.UserID, answers entity.Answers, metadata map[string]any) (advisor.UpsertResult, error)
	Onboard(ctx context.Context, userID entity.UserID, update entity.ProfileUpdate) (advisor.UpsertResult, error)
	Profile(ctx context.Context, ident entity.Identity) (advisor.Profile, error)
	Recommend(ctx context.Context, userID entity.UserID) ([]entity.CardRecommendation, error)
	SaveCard(ctx context.Context, userID entity.UserID, req advisor.SaveCardRequest) (advisor.SaveCardResult, error)
	Chat(ctx context.Context, userID entity.UserID, message string) (string, error)
	SavedCards(ctx context.Context, userID entity.UserID, q advisor.SavedCardsQuery) ([]advisor.SavedCard, error)
}

var _ Advisor = (*advisor.Service)(nil)

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	AppName    = "Zentra"
	AppVersion = "1.0.0"
)

// Handler holds the dependencies of every route.
type Handler struct {
	advisor  Advisor
	store    Pinger
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New builds the handlers. allowedOrigins is the CORS allow-list; the chat
// websocket refuses browser origins outside it.
func New(svc Advisor, store Pinger, logger *slog.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	origins := append([]string(nil), allowedOrigins...)
	return &Handler{
		advisor: svc,
		store:   store,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(origins, r.Header.Get("Origin"))
			},
		},
	}
}
