// Package gateway holds typed wrappers over the remote services the chat calls.
// Every wrapper is stateless; failures come back as *types.ServiceError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go-chat-commerce/chat-commerce/config"
	"go-chat-commerce/chat-commerce/types"
)

// SessionHeader carries the session token on session-scoped calls
const SessionHeader = "X-Session-Id"

// Gateway bundles one client per remote service
type Gateway struct {
	Session      *SessionClient
	Agent        *AgentClient
	Loyalty      *LoyaltyClient
	Payment      *PaymentClient
	PostPurchase *PostPurchaseClient
	Stylist      *StylistClient
}

// New builds all clients. A nil http.Client means http.DefaultClient.
func New(services config.Services, hc *http.Client) *Gateway {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Gateway{
		Session:      &SessionClient{c: client{service: "session", baseURL: services.Session, http: hc}},
		Agent:        &AgentClient{c: client{service: "sales-agent", baseURL: services.SalesAgent, http: hc}},
		Loyalty:      &LoyaltyClient{c: client{service: "loyalty", baseURL: services.Loyalty, http: hc}},
		Payment:      &PaymentClient{c: client{service: "payment", baseURL: services.Payment, http: hc}},
		PostPurchase: &PostPurchaseClient{c: client{service: "post-purchase", baseURL: services.PostPurchase, http: hc}},
		Stylist:      &StylistClient{c: client{service: "stylist", baseURL: services.Stylist, http: hc}},
	}
}

type client struct {
	service string
	baseURL string
	http    *http.Client
}

// envelope is the status part most services put next to their payload
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func (e envelope) reason() string {
	for _, s := range []string{e.Error, e.Detail, e.Message} {
		if s != "" {
			return s
		}
	}
	return "request unsuccessful"
}

func (c client) do(ctx context.Context, method, path, token string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request: %w", c.service, err)
		}
		body = bytes.NewReader(payload)
	}

	url := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.ServiceError{Service: c.service, Msg: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ServiceError{Service: c.service, StatusCode: resp.StatusCode, Msg: "reading body: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env envelope
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &env) == nil && env.reason() != "request unsuccessful" {
			msg = env.reason()
		}
		return nil, &types.ServiceError{Service: c.service, StatusCode: resp.StatusCode, Msg: msg}
	}
	return data, nil
}

// call performs the request, rejects {"success": false} bodies and decodes into out.
func (c client) call(ctx context.Context, method, path, token string, in, out any) error {
	data, err := c.do(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var env envelope
	if json.Unmarshal(data, &env) == nil && env.Success != nil && !*env.Success {
		return &types.ServiceError{Service: c.service, StatusCode: http.StatusOK, Msg: env.reason()}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &types.ServiceError{Service: c.service, StatusCode: http.StatusOK, Msg: "decoding response: " + err.Error()}
	}
	return nil
}

// IsNotFound reports whether err is a 404 from any remote service
func IsNotFound(err error) bool {
	var se *types.ServiceError
	return errors.As(err, &se) && se.NotFound()
}

func decode(data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
