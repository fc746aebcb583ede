package operations

import (
	"time"
)

// Config controls how the manager executes steps
type Config struct {
	// StageTimeouts bounds each step by ID
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// ContinueOnError runs later steps after a failure. The pipeline keeps
	// this false: every step consumes the previous step's table.
	ContinueOnError bool `json:"continue_on_error"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		StageTimeouts: map[string]time.Duration{
			StepIDLoad:     DefaultLoadTimeout,
			StepIDClean:    DefaultCleaningTimeout,
			StepIDFeatures: DefaultFeatureTimeout,
			StepIDQuality:  DefaultQualityTimeout,
			StepIDPersist:  DefaultPersistTimeout,
		},
		ContinueOnError: false,
	}
}

// GetStageTimeout returns the timeout for a specific step
func (c *Config) GetStageTimeout(stepID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stepID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStageTimeout sets the timeout for a specific step
func (c *Config) SetStageTimeout(stepID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stepID] = timeout
}
