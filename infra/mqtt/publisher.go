package mqtt

import (
	"context"
	"sync"

	"github.com/kilianp07/lsp/infra/planstore"
)

// Publisher sends scheduled plans to the fleet.
type Publisher interface {
	PublishPlan(ctx context.Context, rec planstore.Record) error
}

var _ Publisher = (*Feed)(nil)

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	mu    sync.Mutex
	Plans []planstore.Record
	Err   error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher { return &MockPublisher{} }

// PublishPlan records the plan or returns the configured error.
func (m *MockPublisher) PublishPlan(_ context.Context, rec planstore.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Plans = append(m.Plans, rec)
	return nil
}

// Published returns a copy of the recorded plans.
func (m *MockPublisher) Published() []planstore.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]planstore.Record(nil), m.Plans...)
}
