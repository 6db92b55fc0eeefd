package auth_test

import (
	"context"
	"sync"

	"github.com/islamicmasterclass/go-imc-auth"
	"github.com/stretchr/testify/mock"
)

// MockAuthAPI implements auth.AuthAPI
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Login(ctx context.Context, creds auth.Credentials) (*auth.AuthResponse, error) {
	args := m.Called(ctx, creds)
	resp, _ := args.Get(0).(*auth.AuthResponse)
	return resp, args.Error(1)
}

func (m *MockAuthAPI) Register(ctx context.Context, reg auth.Registration) (*auth.AuthResponse, error) {
	args := m.Called(ctx, reg)
	resp, _ := args.Get(0).(*auth.AuthResponse)
	return resp, args.Error(1)
}

func (m *MockAuthAPI) ListRoles(ctx context.Context) ([]auth.Role, error) {
	args := m.Called(ctx)
	roles, _ := args.Get(0).([]auth.Role)
	return roles, args.Error(1)
}

// MockChildIssuer implements auth.ChildTokenIssuer
type MockChildIssuer struct {
	mock.Mock
}

func (m *MockChildIssuer) ImpersonateChild(ctx context.Context, childID auth.ID) (*auth.AuthResponse, error) {
	args := m.Called(ctx, childID)
	resp, _ := args.Get(0).(*auth.AuthResponse)
	return resp, args.Error(1)
}

// recordingSink keeps every activity event
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}
