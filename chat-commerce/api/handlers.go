package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"go-chat-commerce/chat-commerce/types"
	"go-chat-commerce/chat-commerce/workflows"
)

type enterRequest struct {
	Phone string `json:"phone"`
}

type enterResponse struct {
	Session    types.Session `json:"session"`
	WorkflowID string        `json:"workflow_id"`
	Restored   bool          `json:"restored"`
}

// Enter restores or starts the phone's session and makes sure its workflow
// runs with the stored transcript. Without a session the chat cannot open,
// so any failure here is a blocking 503.
func (s *Server) Enter(w http.ResponseWriter, r *http.Request) {
	var req enterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	entry, err := s.sessions.Enter(r.Context(), phone)
	if err != nil {
		s.logger.Error("session entry failed", "phone", phone, "error", err)
		writeError(w, http.StatusServiceUnavailable, "We couldn't start your chat session. Please try again.")
		return
	}

	workflowID := WorkflowID(entry.Session.Token)
	input := types.ChatSessionInput{
		Session:  entry.Session,
		Fresh:    !entry.Restored,
		Settings: s.opts.Settings,
	}
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: s.opts.TaskQueue,
	}
	_, err = s.temporal.SignalWithStartWorkflow(r.Context(), workflowID, types.SignalRestoreTranscript,
		types.RestoreTranscript{Entries: entry.Transcript}, options, workflows.ChatSessionWorkflow, input)
	if err != nil {
		s.logger.Error("chat workflow unavailable", "workflowID", workflowID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "We couldn't start your chat session. Please try again.")
		return
	}

	s.logger.Info("chat session entered", "phone", phone, "workflowID", workflowID, "restored", entry.Restored)
	writeJSON(w, http.StatusOK, enterResponse{Session: entry.Session, WorkflowID: workflowID, Restored: entry.Restored})
}

func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req types.SendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.signal(w, r, types.SignalSendMessage, req)
}

func (s *Server) BuyNow(w http.ResponseWriter, r *http.Request) {
	var req types.BuyNowRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Card) == 0 {
		writeError(w, http.StatusBadRequest, "card is required")
		return
	}
	s.signal(w, r, types.SignalBuyNow, req)
}

// SubmitAddress forwards the address as typed; the workflow validates it and
// reports field errors through the checkout query.
func (s *Server) SubmitAddress(w http.ResponseWriter, r *http.Request) {
	var addr types.Address
	if !decode(w, r, &addr) {
		return
	}
	s.signal(w, r, types.SignalSubmitAddress, addr)
}

func (s *Server) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req types.PaymentSuccess
	if !decode(w, r, &req) {
		return
	}
	if req.PaymentID == "" {
		writeError(w, http.StatusBadRequest, "razorpay_payment_id is required")
		return
	}
	s.signal(w, r, types.SignalPaymentSuccess, req)
}

func (s *Server) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	var req types.PaymentFailure
	if !decode(w, r, &req) {
		return
	}
	s.signal(w, r, types.SignalPaymentFailed, req)
}

func (s *Server) OpenSupport(w http.ResponseWriter, r *http.Request) {
	var req types.SupportOpenRequest
	if !decode(w, r, &req) {
		return
	}
	switch req.Mode {
	case types.SupportReturn, types.SupportExchange, types.SupportComplaint, types.SupportFeedback:
	default:
		writeError(w, http.StatusBadRequest, "unknown support mode")
		return
	}
	s.signal(w, r, types.SignalSupportOpen, req)
}

func (s *Server) SubmitSupport(w http.ResponseWriter, r *http.Request) {
	var req types.SupportSubmission
	if !decode(w, r, &req) {
		return
	}
	s.signal(w, r, types.SignalSupportSubmit, req)
}

// signalOnly handles events that carry no body
func (s *Server) signalOnly(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.signal(w, r, name, nil)
	}
}

func (s *Server) signal(w http.ResponseWriter, r *http.Request, name string, arg interface{}) {
	workflowID := WorkflowID(chi.URLParam(r, "token"))
	err := s.temporal.SignalWorkflow(r.Context(), workflowID, "", name, arg)
	if err != nil {
		s.workflowError(w, workflowID, name, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// query answers a GET with the workflow's view; newValue allocates the result
func (s *Server) query(queryType string, newValue func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workflowID := WorkflowID(chi.URLParam(r, "token"))
		value, err := s.temporal.QueryWorkflow(r.Context(), workflowID, "", queryType)
		if err != nil {
			s.workflowError(w, workflowID, queryType, err)
			return
		}
		out := newValue()
		if err := value.Get(out); err != nil {
			s.logger.Error("decoding query result", "workflowID", workflowID, "query", queryType, "error", err)
			writeError(w, http.StatusInternalServerError, "unreadable session state")
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) workflowError(w http.ResponseWriter, workflowID, op string, err error) {
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, "chat session not found")
		return
	}
	s.logger.Error("workflow call failed", "workflowID", workflowID, "op", op, "error", err)
	writeError(w, http.StatusServiceUnavailable, "chat session unavailable")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
