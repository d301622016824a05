// Package scan tracks the active RFID card scan per kiosk terminal.
// Member-funded payments are only honored while a scan is live, which
// keeps a walked-away member's account from funding the next customer.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/redis"
)

// SessionStore is the slice of the redis client the scan session needs.
type SessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ScanSessionKey(terminalID string) string
}

// Service manages the per-terminal scan session lifecycle.
type Service interface {
	Begin(ctx context.Context, terminalID string, memberID uuid.UUID) error
	Active(ctx context.Context, terminalID string) (uuid.UUID, error)
	Clear(ctx context.Context, terminalID string) error
}

type service struct {
	store SessionStore
	ttl   time.Duration
}

// NewService wires a scan session service over the provided store.
func NewService(store SessionStore, ttl time.Duration) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &service{store: store, ttl: ttl}, nil
}

func (s *service) Begin(ctx context.Context, terminalID string, memberID uuid.UUID) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "terminal id is required")
	}
	if memberID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	key := s.store.ScanSessionKey(terminalID)
	if err := s.store.Set(ctx, key, memberID.String(), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing scan session")
	}
	return nil
}

// Active returns the member bound to the terminal's live scan, or an
// unauthorized error when the scan expired or never happened.
func (s *service) Active(ctx context.Context, terminalID string) (uuid.UUID, error) {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal id is required")
	}
	key := s.store.ScanSessionKey(terminalID)
	value, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no active card scan; scan the member card first")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading scan session")
	}
	memberID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt scan session")
	}
	return memberID, nil
}

func (s *service) Clear(ctx context.Context, terminalID string) error {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "terminal id is required")
	}
	if err := s.store.Del(ctx, s.store.ScanSessionKey(terminalID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing scan session")
	}
	return nil
}
