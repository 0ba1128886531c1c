package http

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"vaquita/internal/delivery/http/controllers"
	"vaquita/internal/delivery/http/middleware"
	"vaquita/internal/domain"
)

// RouterConfig carries the controllers and the collaborators of the
// middleware chain.
type RouterConfig struct {
	Events         *controllers.EventController
	Invitations    *controllers.InvitationController
	Balances       *controllers.BalanceController
	PushTokens     *controllers.PushTokenController
	StorageHook    *controllers.StorageHookController
	Verifier       domain.TokenVerifier
	HookSecret     string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter registers every route and wraps the mux with request ids, access
// logging, panic recovery and CORS, outermost first.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)

	mux.HandleFunc("POST /eventos", auth(cfg.Events.CreateEvent))
	mux.HandleFunc("POST /eventos/join", auth(cfg.Invitations.JoinByToken))
	mux.HandleFunc("GET /eventos/{id}", auth(cfg.Events.GetEvent))
	mux.HandleFunc("POST /eventos/{id}/cerrar", auth(cfg.Events.CloseEvent))
	mux.HandleFunc("GET /balances", auth(cfg.Balances.ListBalances))
	mux.HandleFunc("POST /push-tokens", auth(cfg.PushTokens.Register))

	mux.HandleFunc("POST /hooks/storage/finalize", middleware.RequireHookSecret(cfg.HookSecret)(cfg.StorageHook.Finalize))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.AllowedOrigins, handler)
	handler = chimw.Recoverer(handler)
	handler = middleware.LoggingMiddleware(cfg.Logger, handler)
	return chimw.RequestID(handler)
}
