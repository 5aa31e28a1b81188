package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go-chat-commerce/chat-commerce/types"
)

// PostPurchaseClient registers orders and files returns, exchanges, complaints and feedback
type PostPurchaseClient struct {
	c client
}

// ReturnReasons lists the selectable return/exchange reasons
func (p *PostPurchaseClient) ReturnReasons(ctx context.Context) ([]types.ReturnReason, error) {
	var out struct {
		ReturnReasons []types.ReturnReason `json:"return_reasons"`
	}
	if err := p.c.call(ctx, http.MethodGet, "/return-reasons", "", nil, &out); err != nil {
		return nil, err
	}
	return out.ReturnReasons, nil
}

// IssueTypes lists the complaint categories
func (p *PostPurchaseClient) IssueTypes(ctx context.Context) ([]string, error) {
	var out struct {
		IssueTypes []string `json:"issue_types"`
	}
	if err := p.c.call(ctx, http.MethodGet, "/issue-types", "", nil, &out); err != nil {
		return nil, err
	}
	return out.IssueTypes, nil
}

// RegisterOrder records a completed order
func (p *PostPurchaseClient) RegisterOrder(ctx context.Context, req types.RegisterOrderRequest) error {
	return p.c.call(ctx, http.MethodPost, "/register-order", "", req, nil)
}

// Submit files one support ticket. The request body is built from the
// validated form fields; the reference of the result depends on the mode.
func (p *PostPurchaseClient) Submit(ctx context.Context, req types.SupportTicketRequest) (*types.SupportTicketResult, error) {
	body := map[string]any{
		"user_id":     req.UserID,
		"order_id":    req.Fields["order_id"],
		"product_sku": req.Fields["product_sku"],
	}

	var path string
	switch req.Mode {
	case types.SupportReturn:
		path = "/return"
		body["reason_code"] = req.Fields["reason_code"]
		if v := req.Fields["additional_comments"]; v != "" {
			body["additional_comments"] = v
		}
	case types.SupportExchange:
		path = "/exchange"
		body["reason_code"] = req.Fields["reason_code"]
		body["current_size"] = req.Fields["current_size"]
		body["requested_size"] = req.Fields["requested_size"]
		if v := req.Fields["additional_comments"]; v != "" {
			body["additional_comments"] = v
		}
	case types.SupportComplaint:
		path = "/complaint"
		body["issue_type"] = req.Fields["issue_type"]
		body["description"] = req.Fields["description"]
		body["priority"] = req.Fields["priority"]
	case types.SupportFeedback:
		path = "/feedback"
		rating, err := strconv.Atoi(req.Fields["fit_rating"])
		if err != nil {
			return nil, &types.ValidationError{Fields: map[string]string{"fit_rating": "must be a number"}}
		}
		body["fit_rating"] = rating
		body["length_feedback"] = req.Fields["length_feedback"]
		if v := req.Fields["comments"]; v != "" {
			body["comments"] = v
		}
	default:
		return nil, &types.PermanentError{Msg: fmt.Sprintf("unknown support mode %q", req.Mode)}
	}

	var raw map[string]any
	if err := p.c.call(ctx, http.MethodPost, path, "", body, &raw); err != nil {
		return nil, err
	}
	return supportResult(req.Mode, raw), nil
}

func supportResult(mode types.SupportMode, raw map[string]any) *types.SupportTicketResult {
	res := &types.SupportTicketResult{Mode: mode, Raw: raw}
	str := func(k string) string {
		switch v := raw[k].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		return ""
	}
	switch mode {
	case types.SupportReturn:
		res.Reference = str("return_id")
		if d := str("pickup_date"); d != "" {
			res.Detail = "Pickup on " + d
		}
	case types.SupportExchange:
		res.Reference = str("exchange_id")
		if d := str("delivery_date"); d != "" {
			res.Detail = "Delivery on " + d
		}
	case types.SupportComplaint:
		res.Reference = str("ticket_number")
		if res.Reference == "" {
			res.Reference = str("complaint_id")
		}
	case types.SupportFeedback:
		res.Detail = str("message")
	}
	return res
}
