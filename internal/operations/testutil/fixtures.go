package testutil

import (
	"context"
	"time"

	"zomatoclean/internal/operations"
)

// CreateSuccessfulStage creates a step that always succeeds
func CreateSuccessfulStage(id, name string, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
	}
}

// CreateFailingStage creates a step whose Execute returns err
func CreateFailingStage(id, name string, err error, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(context.Context, *operations.OperationState) error {
			return err
		},
	}
}

// CreateValidationFailingStage creates a step whose Validate returns err
func CreateValidationFailingStage(id, name string, err error, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ValidateFunc: func(*operations.OperationState) error {
			return err
		},
	}
}

// CreateSlowStage creates a step that blocks for d or until ctx is done
func CreateSlowStage(id, name string, d time.Duration, deps ...string) *MockStage {
	return &MockStage{
		IDValue:           id,
		NameValue:         name,
		DependenciesValue: deps,
		ExecuteFunc: func(ctx context.Context, _ *operations.OperationState) error {
			select {
			case <-time.After(d):
			case <-ctx.Done():
			}
			return nil
		},
	}
}

// CreateTestRegistry registers steps in order and panics on error
func CreateTestRegistry(steps ...operations.Step) *operations.Registry {
	r := operations.NewRegistry()
	for _, s := range steps {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}
