package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/biweekly/internal/model"
)

// MockPublisher records Publish calls for tests.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, gen *model.Generation) error
	Published   []*model.Generation
	mu          sync.Mutex
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish implements service.Publisher.
func (m *MockPublisher) Publish(ctx context.Context, gen *model.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Published = append(m.Published, gen)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, gen)
	}
	return nil
}

// Calls returns the number of Publish calls so far.
func (m *MockPublisher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}
