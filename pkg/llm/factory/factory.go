package factory

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/llm/ollama"
	"ai-orchestrator-be/pkg/llm/openaicompat"

	gocache "github.com/patrickmn/go-cache"
)

// LocalKind identifies which API dialect a local endpoint speaks.
type LocalKind string

const (
	KindOllama       LocalKind = "ollama"
	KindOpenAICompat LocalKind = "openai"
)

const probeTimeout = 5 * time.Second

// Detector probes local endpoints and remembers the verdict so repeated
// provider construction does not re-touch the network.
type Detector struct {
	cache  *gocache.Cache
	client *http.Client
}

func NewDetector() *Detector {
	return &Detector{
		cache: gocache.New(gocache.NoExpiration, gocache.NoExpiration),
		client: &http.Client{
			Timeout: probeTimeout,
		},
	}
}

// Detect resolves the API dialect for an endpoint. LM Studio's default port
// is checked first, then Ollama, then a generic OpenAI-compatible server.
// Unreachable endpoints default to Ollama so the real call reports the
// transport failure instead of the probe.
func (d *Detector) Detect(ctx context.Context, endpoint string) LocalKind {
	base := llm.NormalizeEndpoint(endpoint)
	if cached, found := d.cache.Get(base); found {
		return cached.(LocalKind)
	}

	kind := d.probe(ctx, base)
	d.cache.Set(base, kind, gocache.NoExpiration)
	return kind
}

func (d *Detector) probe(ctx context.Context, base string) LocalKind {
	if strings.Contains(base, "1234") && d.reachable(ctx, base+"/v1/models") {
		return KindOpenAICompat
	}
	if d.reachable(ctx, base+"/api/tags") {
		return KindOllama
	}
	if d.reachable(ctx, base+"/v1/models") {
		return KindOpenAICompat
	}
	return KindOllama
}

func (d *Detector) reachable(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// LocalModelLister is implemented by both local transports.
type LocalModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// NewLocalProvider builds the transport matching the endpoint's dialect.
func (d *Detector) NewLocalProvider(ctx context.Context, endpoint, model string, timeout time.Duration) (llm.LLMProvider, LocalModelLister) {
	switch d.Detect(ctx, endpoint) {
	case KindOpenAICompat:
		p := openaicompat.NewProvider(endpoint, model, timeout)
		return p, p
	default:
		p := ollama.NewOllamaProvider(endpoint, model, timeout)
		return p, p
	}
}
