package workflows

import (
	"fmt"
	"strconv"
	"strings"

	"go.temporal.io/sdk/workflow"

	"go-chat-commerce/chat-commerce/types"
)

// requiredSupportFields lists the fields each support form must carry
var requiredSupportFields = map[types.SupportMode][]string{
	types.SupportReturn:    {"order_id", "product_sku", "reason_code"},
	types.SupportExchange:  {"order_id", "product_sku", "reason_code", "current_size", "requested_size"},
	types.SupportComplaint: {"order_id", "issue_type", "description", "priority"},
	types.SupportFeedback:  {"order_id", "product_sku", "fit_rating", "length_feedback"},
}

type supportState struct {
	stage       types.SupportStage
	draft       *types.SupportTicketDraft
	fieldErrors map[string]string
	result      *types.SupportTicketResult
	lastError   string

	// reference data, fetched at most once per session
	returnReasons []types.ReturnReason
	issueTypes    []string
}

func newSupportState() *supportState {
	return &supportState{stage: types.SupportClosed}
}

func (s *supportState) status() types.SupportStatus {
	st := types.SupportStatus{
		Stage:         s.stage,
		ReturnReasons: append([]types.ReturnReason(nil), s.returnReasons...),
		IssueTypes:    append([]string(nil), s.issueTypes...),
		FieldErrors:   copyFields(s.fieldErrors),
		LastError:     s.lastError,
	}
	if s.draft != nil {
		st.Draft = &types.SupportTicketDraft{Mode: s.draft.Mode, Fields: copyFields(s.draft.Fields)}
	}
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	return st
}

func restoreSupport(st types.SupportStatus) *supportState {
	s := &supportState{
		stage:         st.Stage,
		fieldErrors:   st.FieldErrors,
		result:        st.Result,
		lastError:     st.LastError,
		returnReasons: st.ReturnReasons,
		issueTypes:    st.IssueTypes,
	}
	if st.Draft != nil {
		s.draft = &types.SupportTicketDraft{Mode: st.Draft.Mode, Fields: copyFields(st.Draft.Fields)}
	}
	if s.stage == "" {
		s.stage = types.SupportClosed
	}
	return s
}

func copyFields(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// validateSupport returns a message per missing or malformed field
func validateSupport(mode types.SupportMode, fields map[string]string) map[string]string {
	errs := map[string]string{}
	for _, f := range requiredSupportFields[mode] {
		if strings.TrimSpace(fields[f]) == "" {
			errs[f] = "required"
		}
	}
	if mode == types.SupportFeedback {
		if v := strings.TrimSpace(fields["fit_rating"]); v != "" {
			if n, err := strconv.Atoi(v); err != nil || n < 1 || n > 5 {
				errs["fit_rating"] = "must be a number from 1 to 5"
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (c *chat) openSupportMenu() {
	if c.support.stage == types.SupportSubmitting {
		return
	}
	c.support.stage = types.SupportMenuOpen
	c.support.draft = nil
	c.support.fieldErrors = nil
	c.support.result = nil
	c.support.lastError = ""
}

// openSupportForm starts a draft for one mode, defaulted from the caller's
// context and then from the most recent completed order.
func (c *chat) openSupportForm(ctx workflow.Context, req types.SupportOpenRequest) {
	if _, ok := requiredSupportFields[req.Mode]; !ok {
		c.logger.Warn("Unknown support mode", "mode", req.Mode)
		return
	}
	if c.support.stage == types.SupportSubmitting {
		return
	}

	fields := make(map[string]string, len(req.Context)+4)
	for k, v := range req.Context {
		fields[k] = v
	}
	if last := c.checkout.lastOrder; last != nil {
		setDefault(fields, "order_id", last.OrderID)
		setDefault(fields, "product_sku", last.ProductSKU)
		setDefault(fields, "product_name", last.ProductName)
	}
	if req.Mode == types.SupportComplaint {
		setDefault(fields, "priority", "medium")
	}

	c.support.stage = types.SupportFormOpen
	c.support.draft = &types.SupportTicketDraft{Mode: req.Mode, Fields: fields}
	c.support.fieldErrors = nil
	c.support.result = nil
	c.support.lastError = ""

	switch req.Mode {
	case types.SupportReturn, types.SupportExchange:
		if c.support.returnReasons == nil {
			var reasons []types.ReturnReason
			if err := workflow.ExecuteActivity(ctx, "FetchReturnReasons").Get(ctx, &reasons); err != nil {
				c.logger.Warn("Return reasons unavailable", "error", err)
				return
			}
			if reasons == nil {
				reasons = []types.ReturnReason{}
			}
			c.support.returnReasons = reasons
		}
	case types.SupportComplaint:
		if c.support.issueTypes == nil {
			var issues []string
			if err := workflow.ExecuteActivity(ctx, "FetchIssueTypes").Get(ctx, &issues); err != nil {
				c.logger.Warn("Issue types unavailable", "error", err)
				return
			}
			if issues == nil {
				issues = []string{}
			}
			c.support.issueTypes = issues
		}
	}
}

func setDefault(fields map[string]string, key, value string) {
	if strings.TrimSpace(fields[key]) == "" && value != "" {
		fields[key] = value
	}
}

// submitSupport validates the draft locally and files it. A draft with
// missing fields stays open and never reaches the service.
func (c *chat) submitSupport(ctx workflow.Context, sub types.SupportSubmission) {
	s := c.support
	if s.draft == nil || (s.stage != types.SupportFormOpen && s.stage != types.SupportError) {
		c.logger.Warn("Support submission without an open form", "stage", s.stage)
		return
	}
	for k, v := range sub.Fields {
		s.draft.Fields[k] = strings.TrimSpace(v)
	}

	if errs := validateSupport(s.draft.Mode, s.draft.Fields); errs != nil {
		s.stage = types.SupportFormOpen
		s.fieldErrors = errs
		return
	}
	s.fieldErrors = nil
	s.lastError = ""
	s.stage = types.SupportSubmitting

	mode := s.draft.Mode
	req := types.SupportTicketRequest{Mode: mode, UserID: c.userID(), Fields: copyFields(s.draft.Fields)}
	var res *types.SupportTicketResult
	err := workflow.ExecuteActivity(ctx, "SubmitSupportTicket", req).Get(ctx, &res)
	if err == nil && res == nil {
		err = fmt.Errorf("empty support response")
	}
	if err != nil {
		c.logger.Warn("Support ticket failed", "mode", mode, "error", err)
		s.stage = types.SupportError
		s.lastError = fmt.Sprintf("We couldn't submit your %s request. Please try again.", mode)
		return
	}

	s.stage = types.SupportResult
	s.result = res
	s.draft = nil
	c.appendAgent(ctx, supportSummary(req, res), &types.Attachment{
		Kind:    types.AttachmentSupportReceipt,
		Support: &types.SupportReceipt{Mode: mode, Reference: res.Reference},
	})
	c.logger.Info("Support ticket filed", "mode", mode, "reference", res.Reference)
}

func (c *chat) closeSupport() {
	if c.support.stage == types.SupportSubmitting {
		return
	}
	c.support.stage = types.SupportClosed
	c.support.draft = nil
	c.support.fieldErrors = nil
	c.support.result = nil
	c.support.lastError = ""
}

func supportSummary(req types.SupportTicketRequest, res *types.SupportTicketResult) string {
	orderID := req.Fields["order_id"]
	var text string
	switch req.Mode {
	case types.SupportReturn:
		text = fmt.Sprintf("Return requested for order %s.", orderID)
		if res.Reference != "" {
			text += " Return ID: " + res.Reference + "."
		}
	case types.SupportExchange:
		text = fmt.Sprintf("Exchange requested for order %s.", orderID)
		if res.Reference != "" {
			text += " Exchange ID: " + res.Reference + "."
		}
	case types.SupportComplaint:
		text = fmt.Sprintf("Complaint registered for order %s.", orderID)
		if res.Reference != "" {
			text += " Ticket number: " + res.Reference + "."
		}
	default:
		text = fmt.Sprintf("Thanks for your feedback on order %s.", orderID)
	}
	if res.Detail != "" {
		text += " " + res.Detail
	}
	return text
}
