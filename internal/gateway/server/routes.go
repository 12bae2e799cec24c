package server

import (
	"net/http"

	"go.uber.org/zap"

	"repofix/internal/gateway/handler"
	"repofix/internal/gateway/middleware"
)

func NewMux(
	fixHandler *handler.FixHandler,
	limiter *middleware.ClientLimiter,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/fix", fixHandler.HandleFix)
	mux.HandleFunc("/healthz", fixHandler.HandleHealth)

	// Outermost first: every request gets an id and a log line, preflights
	// are answered before rate limiting.
	var h http.Handler = mux
	h = middleware.RateLimit(limiter)(h)
	h = middleware.CORS(middleware.DefaultCORS())(h)
	h = middleware.RequestLog(logger)(h)
	return h
}
