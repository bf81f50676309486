// Package notify delivers pipeline notifications to the log and to an optional JSON-lines file.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	"go.uber.org/zap"
)

// Sink delivers notifications of the subscribed types.
// Every project shares the same subscriptions.
type Sink struct {
	mu          sync.Mutex
	subscribers map[schema.NotificationType]struct{}
	logger      *zap.Logger
	out         io.Writer
	closer      io.Closer
	delivered   int
}

var _ contract.NotificationSink = &Sink{} // Compile-time check

// NewSink returns a sink that writes to w, which may be nil.
func NewSink(subscribers []schema.NotificationType, w io.Writer, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sink{
		subscribers: make(map[schema.NotificationType]struct{}, len(subscribers)),
		logger:      logger,
		out:         w,
	}
	for _, t := range subscribers {
		s.subscribers[t] = struct{}{}
	}
	return s
}

// OpenSink returns a sink appending to path, or a log-only sink when path is empty.
func OpenSink(subscribers []schema.NotificationType, path string, logger *zap.Logger) (*Sink, error) {
	if path == "" {
		return NewSink(subscribers, nil, logger), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification file %s: %w", path, err)
	}
	s := NewSink(subscribers, f, logger)
	s.closer = f
	return s, nil
}

// HasSubscribers implements contract.NotificationSink.
func (s *Sink) HasSubscribers(_ context.Context, _ string, types []schema.NotificationType) (bool, error) {
	for _, t := range types {
		if _, ok := s.subscribers[t]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Deliver implements contract.NotificationSink.
func (s *Sink) Deliver(ctx context.Context, n schema.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields := []zap.Field{
		zap.String("type", string(n.Type)),
		zap.String("project", n.ProjectKey),
	}
	if n.Assignee != "" {
		fields = append(fields, zap.String("assignee", n.Assignee))
	}
	if n.Statistics != nil {
		fields = append(fields, zap.Int("on_leak", n.Statistics.IssuesOnLeak), zap.Int("off_leak", n.Statistics.IssuesOffLeak))
	}
	if n.IssueChange != nil {
		fields = append(fields, zap.String("issue", n.IssueChange.IssueKey), zap.Int("changes", len(n.IssueChange.Changes)))
	}
	s.logger.Info("Notification delivered", fields...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered++
	if s.out == nil {
		return nil
	}
	line, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if _, err := s.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// Delivered returns the number of notifications delivered so far.
func (s *Sink) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

// Close releases the notification file, if any.
func (s *Sink) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
