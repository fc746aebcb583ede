package testutil

import (
	"context"
	"sync"

	"zomatoclean/internal/operations"
)

// MockStage is a configurable mock implementation of operations.Step
type MockStage struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string

	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	mu            sync.Mutex
	executeCalls  int
	validateCalls int
}

// ID returns the step ID
func (m *MockStage) ID() string { return m.IDValue }

// Name returns the step name
func (m *MockStage) Name() string { return m.NameValue }

// GetDependencies returns the step dependencies
func (m *MockStage) GetDependencies() []string {
	if m.DependenciesValue == nil {
		return []string{}
	}
	return m.DependenciesValue
}

// Execute runs ExecuteFunc when set
func (m *MockStage) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.executeCalls++
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate runs ValidateFunc when set
func (m *MockStage) Validate(state *operations.OperationState) error {
	m.mu.Lock()
	m.validateCalls++
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// GetExecuteCalls returns how many times Execute ran
func (m *MockStage) GetExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

// GetValidateCalls returns how many times Validate ran
func (m *MockStage) GetValidateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateCalls
}

// MockWebSocketHub records broadcast messages
type MockWebSocketHub struct {
	mu       sync.Mutex
	messages []WebSocketMessage
}

// WebSocketMessage is one recorded broadcast
type WebSocketMessage struct {
	EventType string
	Step      string
	Status    string
	Metadata  interface{}
}

// BroadcastUpdate records the message
func (m *MockWebSocketHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, WebSocketMessage{
		EventType: eventType,
		Step:      step,
		Status:    status,
		Metadata:  metadata,
	})
}

// GetMessages returns a copy of all recorded messages
func (m *MockWebSocketHub) GetMessages() []WebSocketMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WebSocketMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// LastSnapshot returns the most recent operation snapshot, if any
func (m *MockWebSocketHub) LastSnapshot() (*operations.OperationSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if s, ok := m.messages[i].Metadata.(*operations.OperationSnapshot); ok {
			return s, true
		}
	}
	return nil, false
}

// Clear drops all recorded messages
func (m *MockWebSocketHub) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}
