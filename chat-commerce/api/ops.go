package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-chat-commerce/chat-commerce/ledger"
	"go-chat-commerce/chat-commerce/types"
)

// ListUnverified returns captured payments still waiting for support
func (s *Server) ListUnverified(w http.ResponseWriter, r *http.Request) {
	pending, err := s.opts.Ledger.Pending(r.Context())
	if err != nil {
		s.logger.Error("failed to list unverified payments", "error", err)
		writeError(w, http.StatusServiceUnavailable, "ledger unavailable")
		return
	}
	if pending == nil {
		pending = []types.UnverifiedPayment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": pending})
}

// ResolveUnverified marks a payment as reconciled by support
func (s *Server) ResolveUnverified(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	err := s.opts.Ledger.Resolve(r.Context(), paymentID)
	switch {
	case errors.Is(err, ledger.ErrUnknownPayment):
		writeError(w, http.StatusNotFound, "payment not found")
	case err != nil:
		s.logger.Error("failed to resolve payment", "paymentID", paymentID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "ledger unavailable")
	default:
		s.logger.Info("unverified payment resolved", "paymentID", paymentID)
		w.WriteHeader(http.StatusNoContent)
	}
}
