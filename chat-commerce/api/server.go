// Package api is the HTTP backend of the chat UI. It enters sessions and
// turns UI events into signals and queries on the chat-session workflow.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"go-chat-commerce/chat-commerce/types"
)

// WorkflowClient is the part of the Temporal client the server uses
type WorkflowClient interface {
	SignalWithStartWorkflow(ctx context.Context, workflowID string, signalName string, signalArg interface{},
		options client.StartWorkflowOptions, workflow interface{}, workflowArgs ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

// Sessions enters a chat session for a phone number
type Sessions interface {
	Enter(ctx context.Context, phone string) (*types.EntryResult, error)
}

// Reconciliation lists and settles captured payments that failed verification
type Reconciliation interface {
	Pending(ctx context.Context) ([]types.UnverifiedPayment, error)
	Resolve(ctx context.Context, paymentID string) error
}

// Options configure a Server
type Options struct {
	TaskQueue      string
	Settings       types.CheckoutSettings
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *slog.Logger
	// Ledger enables the /ops/unverified routes when set.
	Ledger Reconciliation
}

// Server holds the HTTP handler state
type Server struct {
	temporal WorkflowClient
	sessions Sessions
	opts     Options
	limiter  *sessionLimiter
	logger   *slog.Logger
}

func NewServer(temporal WorkflowClient, sessions Sessions, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		temporal: temporal,
		sessions: sessions,
		opts:     opts,
		limiter:  newSessionLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		logger:   logger,
	}
}

// WorkflowID names the chat-session workflow of a session token
func WorkflowID(token string) string {
	return "chat-" + token
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)

	r.Post("/chat/enter", s.Enter)

	r.Route("/chat/{token}", func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Post("/messages", s.SendMessage)
		r.Post("/buy-now", s.BuyNow)
		r.Post("/pay", s.signalOnly(types.SignalPayTapped))
		r.Post("/address", s.SubmitAddress)
		r.Post("/payment/success", s.PaymentSuccess)
		r.Post("/payment/failed", s.PaymentFailed)
		r.Post("/payment/dismiss", s.signalOnly(types.SignalPaymentDismissed))
		r.Post("/support/menu", s.signalOnly(types.SignalSupportMenu))
		r.Post("/support/open", s.OpenSupport)
		r.Post("/support/submit", s.SubmitSupport)
		r.Post("/support/close", s.signalOnly(types.SignalSupportClose))
		r.Post("/end", s.signalOnly(types.SignalEndSession))

		r.Get("/timeline", s.query(types.QueryTimeline, func() any { return &[]types.Message{} }))
		r.Get("/checkout", s.query(types.QueryCheckout, func() any { return &types.CheckoutStatus{} }))
		r.Get("/support", s.query(types.QuerySupport, func() any { return &types.SupportStatus{} }))
		r.Get("/session", s.query(types.QuerySession, func() any { return &types.Session{} }))
	})

	if s.opts.Ledger != nil {
		r.Get("/ops/unverified", s.ListUnverified)
		r.Post("/ops/unverified/{paymentID}/resolve", s.ResolveUnverified)
	}

	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
