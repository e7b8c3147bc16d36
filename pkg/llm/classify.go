package llm

import (
	"context"
	"errors"
	"net"

	"ai-orchestrator-be/internal/pipeline"
)

// ClassifyTransportError distinguishes deadline expiry from an unreachable
// endpoint. Timeouts behave identically to network failures downstream but
// are reported as their own kind.
func ClassifyTransportError(err error, endpoint string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return pipeline.WrapError(pipeline.KindTimeout, "model endpoint deadline exceeded: "+endpoint, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return pipeline.WrapError(pipeline.KindTimeout, "model endpoint deadline exceeded: "+endpoint, err)
	}
	return pipeline.WrapError(pipeline.KindNetwork, "model endpoint unreachable: "+endpoint, err)
}

// NormalizeEndpoint prefixes bare host:port endpoints with http://.
func NormalizeEndpoint(endpoint string) string {
	if len(endpoint) >= 4 && endpoint[:4] == "http" {
		return endpoint
	}
	return "http://" + endpoint
}
