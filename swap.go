package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ChildTokenIssuer hands out a session for a child account of the calling
// parent. *Client implements it.
type ChildTokenIssuer interface {
	ImpersonateChild(ctx context.Context, childID ID) (*AuthResponse, error)
}

// SessionSwapper lets a parent look at the platform as one of their
// children and come back. The parent session is parked in the backup slot
// of the repository; there is exactly one slot, a second preview while one
// is active fails.
type SessionSwapper struct {
	mu       sync.Mutex
	sessions SessionRepository
	issuer   ChildTokenIssuer
	activity ActivitySink
	logger   Logger
}

// SwapperOption configures a SessionSwapper
type SwapperOption func(*SessionSwapper)

// WithSwapActivitySink records preview start and end
func WithSwapActivitySink(sink ActivitySink) SwapperOption {
	return func(s *SessionSwapper) {
		s.activity = sink
	}
}

// WithSwapLogger sets the logger
func WithSwapLogger(logger Logger) SwapperOption {
	return func(s *SessionSwapper) {
		s.logger = logger
	}
}

// NewSessionSwapper creates a swapper
func NewSessionSwapper(sessions SessionRepository, issuer ChildTokenIssuer, opts ...SwapperOption) *SessionSwapper {
	s := &SessionSwapper{
		sessions: sessions,
		issuer:   issuer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = normalizeLogger(s.logger)
	s.activity = normalizeActivitySink(s.activity)
	return s
}

// PreviewChild swaps the live parent session for a child session and
// returns where to navigate next. Nothing is written unless the backend
// issued a usable child token.
func (s *SessionSwapper) PreviewChild(ctx context.Context, childID ID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.sessions.Get(ctx)
	if err != nil {
		return "", err
	}

	if !parent.Authenticated() {
		return "", ErrNoSession
	}

	actor := ActorFromSession(parent)
	if actor.Role != RoleParent {
		return "", ErrNotParent
	}

	exists, err := s.sessions.HasBackup(ctx)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrBackupExists
	}

	resp, err := s.issuer.ImpersonateChild(ctx, childID)
	if err != nil {
		s.failed(ctx, actor, childID, err)
		return "", fmt.Errorf("request child session: %w", err)
	}

	child, err := resp.Session()
	if err != nil {
		s.failed(ctx, actor, childID, err)
		return "", fmt.Errorf("request child session: %w", err)
	}

	if err := s.sessions.SaveBackup(ctx); err != nil {
		return "", fmt.Errorf("backup parent session: %w", err)
	}

	if err := s.sessions.Set(ctx, child); err != nil {
		if rerr := s.sessions.RestoreBackup(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return "", fmt.Errorf("store child session: %w", err)
	}

	s.logger.Info("parent %s previewing child %s", actor.ID, childID)
	emitActivity(ctx, s.activity, s.logger, NewActivityEvent(
		ActivityEventPreviewStarted, actor, childID.String(), nil,
	))

	return RouteStudentDashboard, nil
}

// BackToParent restores the parked parent session and clears the slot.
func (s *SessionSwapper) BackToParent(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	child, err := s.sessions.Get(ctx)
	if err != nil {
		return "", err
	}

	if err := s.sessions.RestoreBackup(ctx); err != nil {
		return "", err
	}

	parent, err := s.sessions.Get(ctx)
	if err != nil {
		s.logger.Error("failed to read restored parent session: %v", err)
	}
	actor := ActorFromSession(parent)
	s.logger.Info("parent %s back from preview", actor.ID)
	emitActivity(ctx, s.activity, s.logger, NewActivityEvent(
		ActivityEventPreviewEnded, actor, ActorFromSession(child).ID, nil,
	))

	return RouteParentDashboard, nil
}

// Previewing reports whether a parent session is parked
func (s *SessionSwapper) Previewing(ctx context.Context) bool {
	ok, err := s.sessions.HasBackup(ctx)
	if err != nil {
		s.logger.Error("failed to read backup slot: %v", err)
		return false
	}
	return ok
}

func (s *SessionSwapper) failed(ctx context.Context, actor ActorRef, childID ID, err error) {
	s.logger.Error("child session for %s refused: %v", childID, err)
	emitActivity(ctx, s.activity, s.logger, NewActivityEvent(
		ActivityEventPreviewFailure, actor, childID.String(), map[string]any{"error": err.Error()},
	))
}
