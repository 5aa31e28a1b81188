package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-chat-commerce/chat-commerce/types"
)

// Remote is the session manager service
type Remote interface {
	Start(ctx context.Context, phone, channel string) (*types.Session, error)
	Restore(ctx context.Context, token string) (*types.EntryResult, error)
	End(ctx context.Context, token string) error
}

// Manager implements start/restore/end over the remote service and the local Store
type Manager struct {
	store   Store
	remote  Remote
	channel string
	logger  *slog.Logger
}

func NewManager(store Store, remote Remote, channel string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, remote: remote, channel: channel, logger: logger}
}

// Enter restores the cached session for phone when it is still valid and
// starts a new one otherwise. A start failure is returned; callers must not
// open the chat without a session.
func (m *Manager) Enter(ctx context.Context, phone string) (*types.EntryResult, error) {
	cached, err := m.store.Load(ctx, phone)
	if err != nil {
		m.logger.Warn("session cache unavailable", "phone", phone, "error", err)
		cached = nil
	}

	if cached != nil && cached.Token != "" {
		res, err := m.Restore(ctx, *cached)
		if err == nil {
			return res, nil
		}
		m.logger.Info("cached session not restorable, starting a new one", "phone", phone, "error", err)
	}

	sess, err := m.remote.Start(ctx, phone, m.channel)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	if cached != nil && sess.ShippingAddress == nil {
		sess.ShippingAddress = cached.ShippingAddress
	}
	if err := m.store.Save(ctx, *sess); err != nil {
		m.logger.Warn("failed to cache session", "phone", phone, "error", err)
	}
	return &types.EntryResult{Session: *sess}, nil
}

// Restore reloads cached from the remote service. A session that comes back
// for a different phone is treated as not found.
func (m *Manager) Restore(ctx context.Context, cached types.Session) (*types.EntryResult, error) {
	res, err := m.remote.Restore(ctx, cached.Token)
	if err != nil {
		return nil, err
	}
	if res.Session.Phone != "" && res.Session.Phone != cached.Phone {
		return nil, fmt.Errorf("%w: token belongs to another phone", types.ErrSessionNotFound)
	}

	res.Session.Token = cached.Token
	res.Session.Phone = cached.Phone
	if res.Session.CustomerID == "" {
		res.Session.CustomerID = cached.CustomerID
	}
	if res.Session.CustomerName == "" {
		res.Session.CustomerName = cached.CustomerName
	}
	if res.Session.ShippingAddress == nil {
		res.Session.ShippingAddress = cached.ShippingAddress
	}
	if err := m.store.Save(ctx, res.Session); err != nil {
		m.logger.Warn("failed to cache session", "phone", cached.Phone, "error", err)
	}
	return res, nil
}

// End closes the session remotely and always clears the local cache
func (m *Manager) End(ctx context.Context, sess types.Session) error {
	remoteErr := m.remote.End(ctx, sess.Token)
	clearErr := m.store.Clear(ctx, sess.Phone)
	return errors.Join(remoteErr, clearErr)
}

// SaveAddress remembers the delivery address for future prefill
func (m *Manager) SaveAddress(ctx context.Context, phone string, addr types.Address) error {
	return m.store.SaveAddress(ctx, phone, addr)
}

// Address returns the saved delivery address, if any
func (m *Manager) Address(ctx context.Context, phone string) (*types.Address, error) {
	return m.store.Address(ctx, phone)
}
