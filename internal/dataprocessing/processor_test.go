package dataprocessing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zomatoclean/internal/config"
	"zomatoclean/internal/infrastructure"
)

func TestProcessorsLogWithCallerTrace(t *testing.T) {
	tests := []struct {
		name string
		make func(cfg *config.Config, buf *bytes.Buffer) Processor
	}{
		{"cleaner", func(cfg *config.Config, buf *bytes.Buffer) Processor {
			return NewCleaner(cfg.Cleaning, infrastructure.NewLogger(buf, config.LoggingConfig{Level: "debug"}))
		}},
		{"feature engineer", func(cfg *config.Config, buf *bytes.Buffer) Processor {
			return NewFeatureEngineer(cfg.Features, infrastructure.NewLogger(buf, config.LoggingConfig{Level: "debug"}))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := tt.make(testConfig(), &buf)
			ctx := infrastructure.WithTraceID(context.Background(), "trace-7f3a")

			out, _ := p.Process(ctx, sampleTable(t))
			require.NotNil(t, out)

			records := 0
			scanner := bufio.NewScanner(&buf)
			for scanner.Scan() {
				var rec map[string]any
				require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
				assert.Equal(t, "trace-7f3a", rec["trace_id"], rec["msg"])
				records++
			}
			assert.Positive(t, records)
		})
	}
}
