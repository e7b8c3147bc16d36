package llm

import (
	"context"
	"errors"
	"testing"

	"ai-orchestrator-be/internal/pipeline"

	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return false }

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pipeline.Kind
	}{
		{"deadline exceeded", context.DeadlineExceeded, pipeline.KindTimeout},
		{"wrapped deadline", errors.New("dial: " + context.DeadlineExceeded.Error()), pipeline.KindNetwork},
		{"net timeout", timeoutError{}, pipeline.KindTimeout},
		{"connection refused", errors.New("connect: connection refused"), pipeline.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTransportError(tt.err, "localhost:11434")
			assert.Equal(t, tt.want, pipeline.KindOf(got))
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:11434", NormalizeEndpoint("localhost:11434"))
	assert.Equal(t, "http://localhost:11434", NormalizeEndpoint("http://localhost:11434"))
	assert.Equal(t, "https://example.com", NormalizeEndpoint("https://example.com"))
}
