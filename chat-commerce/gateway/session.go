package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-chat-commerce/chat-commerce/cards"
	"go-chat-commerce/chat-commerce/types"
)

// SessionClient talks to the session manager
type SessionClient struct {
	c client
}

type sessionPayload struct {
	SessionID    string          `json:"session_id"`
	Phone        string          `json:"phone"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Address      *types.Address  `json:"address"`
	ChatHistory  []historyRecord `json:"chat_history"`
}

type historyRecord struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Sender    string         `json:"sender"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

func (p sessionPayload) session() types.Session {
	return types.Session{
		Token:           p.SessionID,
		Phone:           p.Phone,
		CustomerID:      p.CustomerID,
		CustomerName:    p.CustomerName,
		ShippingAddress: p.Address,
	}
}

// Start opens a new session for phone
func (s *SessionClient) Start(ctx context.Context, phone, channel string) (*types.Session, error) {
	var out sessionPayload
	body := map[string]string{"phone": phone, "channel": channel}
	if err := s.c.call(ctx, http.MethodPost, "/session/start", "", body, &out); err != nil {
		return nil, err
	}
	if out.SessionID == "" {
		return nil, &types.ServiceError{Service: s.c.service, StatusCode: http.StatusOK, Msg: "start returned no session id"}
	}
	sess := out.session()
	if sess.Phone == "" {
		sess.Phone = phone
	}
	return &sess, nil
}

// Restore loads a session and its transcript. A 404 maps to types.ErrSessionNotFound.
func (s *SessionClient) Restore(ctx context.Context, token string) (*types.EntryResult, error) {
	var out sessionPayload
	if err := s.c.call(ctx, http.MethodGet, "/session/restore", token, nil, &out); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %v", types.ErrSessionNotFound, err)
		}
		return nil, err
	}
	if out.SessionID == "" {
		out.SessionID = token
	}

	transcript := make([]types.TranscriptEntry, 0, len(out.ChatHistory))
	for _, rec := range out.ChatHistory {
		transcript = append(transcript, rec.entry())
	}
	return &types.EntryResult{Session: out.session(), Transcript: transcript, Restored: true}, nil
}

// Update records a chat message or cart change against the session
func (s *SessionClient) Update(ctx context.Context, token string, update types.SessionUpdate) error {
	return s.c.call(ctx, http.MethodPost, "/session/update", token, update, nil)
}

// End closes the session on the server
func (s *SessionClient) End(ctx context.Context, token string) error {
	return s.c.call(ctx, http.MethodPost, "/session/end", token, map[string]string{}, nil)
}

func (r historyRecord) entry() types.TranscriptEntry {
	entry := types.TranscriptEntry{
		ID:     r.ID,
		Text:   r.Text,
		Sender: types.SenderAgent,
	}
	if r.Sender == string(types.SenderUser) {
		entry.Sender = types.SenderUser
	}
	if ts, err := time.Parse(time.RFC3339Nano, r.Timestamp); err == nil {
		entry.Timestamp = ts
	}
	entry.Attachment = attachmentFromMetadata(r.Metadata)
	return entry
}

// attachmentFromMetadata reads a stored attachment, or a bare product list
// written by older producers.
func attachmentFromMetadata(meta map[string]any) *types.Attachment {
	if len(meta) == 0 {
		return nil
	}
	if raw, ok := meta["attachment"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err == nil {
			var att types.Attachment
			if json.Unmarshal(data, &att) == nil && att.Kind != "" {
				return &att
			}
		}
	}
	if list, ok := meta["products"].([]any); ok {
		raws := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				raws = append(raws, m)
			}
		}
		if products := cards.NormalizeAll(raws); len(products) > 0 {
			return &types.Attachment{Kind: types.AttachmentProductCards, Products: products}
		}
	}
	return nil
}
