package notify

import (
	"context"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/mock"
)

// MockSink is a mock implementation of NotificationSink for testing.
type MockSink struct {
	mock.Mock
}

var _ contract.NotificationSink = &MockSink{} // Compile-time check

// HasSubscribers implements the NotificationSink interface.
func (m *MockSink) HasSubscribers(ctx context.Context, projectUUID string, types []schema.NotificationType) (bool, error) {
	args := m.Called(ctx, projectUUID, types)
	return args.Bool(0), args.Error(1)
}

// Deliver implements the NotificationSink interface.
func (m *MockSink) Deliver(ctx context.Context, n schema.Notification) error {
	return m.Called(ctx, n).Error(0)
}
