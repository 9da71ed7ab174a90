package server

import (
	"log/slog"
	"net/http"

	"zentra/internal/gateway/handler"
	"zentra/internal/gateway/middleware"
)

type RouteOptions struct {
	CORSAllowedOrigins []string
}

func NewMux(h *handler.Handler, auth *middleware.Authenticator, logger *slog.Logger, opts RouteOptions) http.Handler {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /public/{$}", h.Root)
	mux.HandleFunc("GET /public/health", h.Health)
	mux.HandleFunc("GET /public/info", h.Info)
	mux.HandleFunc("POST /public/signup", h.Signup)

	// Protected
	protected := func(fn http.HandlerFunc) http.Handler { return auth.Require(fn) }
	mux.Handle("POST /protected/submit-answers", protected(h.SubmitAnswers))
	mux.Handle("POST /protected/onboard", protected(h.Onboard))
	mux.Handle("GET /protected/profile", protected(h.Profile))
	mux.Handle("GET /protected/recommendations", protected(h.Recommendations))
	mux.Handle("POST /protected/save-card", protected(h.SaveCard))
	mux.Handle("POST /protected/chat", protected(h.Chat))
	mux.Handle("GET /protected/saved-cards", protected(h.SavedCards))
	mux.Handle("GET /protected/chat/ws", auth.RequireAllowQuery(http.HandlerFunc(h.ChatWS)))

	return middleware.RequestLog(logger)(middleware.CORS(opts.CORSAllowedOrigins)(mux))
}
