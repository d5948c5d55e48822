// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/autopermit/internal/notify"
	"github.com/xkilldash9x/autopermit/internal/schedule"
)

// -- Scheduler Mock --

// MockScheduler mocks schedule.Scheduler.
type MockScheduler struct {
	mock.Mock
}

var _ schedule.Scheduler = (*MockScheduler)(nil)

func (m *MockScheduler) Register(ctx context.Context, task schedule.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockScheduler) Unregister(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// -- Notification Mocks --

// MockDispatcher mocks the orchestrator's notification dependency.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// MockBotSession mocks notify.BotSession.
type MockBotSession struct {
	mock.Mock
}

var _ notify.BotSession = (*MockBotSession)(nil)

func (m *MockBotSession) Open(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBotSession) ResolveChannel(ctx context.Context, channelID string) (string, error) {
	args := m.Called(ctx, channelID)
	return args.String(0), args.Error(1)
}

func (m *MockBotSession) SendFile(ctx context.Context, channelID, name string, r io.Reader) error {
	args := m.Called(ctx, channelID, name, r)
	return args.Error(0)
}

func (m *MockBotSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// -- Renewal Mock --

// MockRenewer mocks the orchestrator's renewal dependency.
type MockRenewer struct {
	mock.Mock
}

func (m *MockRenewer) Renew(ctx context.Context, expiration time.Time) (schedule.Task, error) {
	args := m.Called(ctx, expiration)
	return args.Get(0).(schedule.Task), args.Error(1)
}
