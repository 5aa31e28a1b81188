package gateway

import (
	"context"
	"net/http"

	"go-chat-commerce/chat-commerce/cards"
	"go-chat-commerce/chat-commerce/types"
)

// AgentClient forwards user turns to the remote sales agent
type AgentClient struct {
	c client
}

type agentResponse struct {
	Response string           `json:"response"`
	Reply    string           `json:"reply"`
	Message  string           `json:"message"`
	Products []map[string]any `json:"products"`
}

// Send posts one user message and returns the agent's reply with normalized cards
func (a *AgentClient) Send(ctx context.Context, token, phone, text string) (*types.AgentReply, error) {
	body := map[string]string{"session_id": token, "phone": phone, "message": text}
	var out agentResponse
	if err := a.c.call(ctx, http.MethodPost, "/chat", token, body, &out); err != nil {
		return nil, err
	}

	reply := &types.AgentReply{Text: out.Response}
	if reply.Text == "" {
		reply.Text = out.Reply
	}
	if reply.Text == "" {
		reply.Text = out.Message
	}
	reply.Products = cards.NormalizeAll(out.Products)
	return reply, nil
}
