package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/custodix/go-metarelay/internal/relay"
	"github.com/custodix/go-metarelay/internal/router/controllers"
	"github.com/custodix/go-metarelay/internal/router/middlewares"
)

// ConfiguredRouter returns a fully configured Router that can be used as an http handler.
func ConfiguredRouter(
	relayer relay.Relayer,
	acceptedChainIDs []relay.ChainID,
	maxRPI uint64,
	rateLimInterval time.Duration,
) (*Router, error) {
	relayController := controllers.NewRelayController(relayer)
	infraController := controllers.NewInfraController()

	// General router configuration.
	router := NewRouter()
	router.Use(middlewares.CORS, middlewares.TraceID)

	rateLim, err := middlewares.RateLimitController(middlewares.RateLimiterConfig{
		MaxRPI:   maxRPI,
		Interval: rateLimInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("creating rate limit controller middleware: %s", err)
	}
	restChainID := middlewares.RESTChainID(acceptedChainIDs)

	// Relay configuration.
	router.Post("/chain/{chainID}/relay", relayController.SendMetaTransaction, middlewares.WithLogging, middlewares.OtelHTTP("SendMetaTransaction"), restChainID, rateLim)          // nolint
	router.Get("/chain/{chainID}/txns/{hash}", relayController.GetTransaction, middlewares.WithLogging, middlewares.OtelHTTP("GetTransaction"), restChainID, rateLim)               // nolint
	router.Get("/chain/{chainID}/wallets/{address}/txns", relayController.ListWalletTransactions, middlewares.WithLogging, middlewares.OtelHTTP("ListWalletTransactions"), restChainID, rateLim) // nolint

	router.Get("/version", infraController.Version, middlewares.WithLogging, middlewares.OtelHTTP("Version"), rateLim) // nolint

	// Health endpoint configuration.
	router.Get("/healthz", healthHandler)
	router.Get("/health", relayController.Health)

	return router, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Router provides a nice api around mux.Router.
type Router struct {
	r *mux.Router
}

// NewRouter is a Mux HTTP router constructor.
func NewRouter() *Router {
	r := mux.NewRouter()
	r.PathPrefix("/").Methods(http.MethodOptions) // accept OPTIONS on all routes and do nothing
	return &Router{r: r}
}

// Get creates a subroute on the specified URI that only accepts GET. You can provide specific middlewares.
func (r *Router) Get(uri string, f func(http.ResponseWriter, *http.Request), mid ...mux.MiddlewareFunc) {
	sub := r.r.Path(uri).Subrouter()
	sub.HandleFunc("", f).Methods(http.MethodGet)
	sub.Use(mid...)
}

// Post creates a subroute on the specified URI that only accepts POST. You can provide specific middlewares.
func (r *Router) Post(uri string, f func(http.ResponseWriter, *http.Request), mid ...mux.MiddlewareFunc) {
	sub := r.r.Path(uri).Subrouter()
	sub.HandleFunc("", f).Methods(http.MethodPost)
	sub.Use(mid...)
}

// Use adds middlewares to all routes. Should be used when a middleware should be execute all all routes (e.g. CORS).
func (r *Router) Use(mid ...mux.MiddlewareFunc) {
	r.r.Use(mid...)
}

// Handler returns the configured router http handler.
func (r *Router) Handler() http.Handler {
	return r.r
}
