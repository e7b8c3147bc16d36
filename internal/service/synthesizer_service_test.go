package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pipeline"
	"ai-orchestrator-be/pkg/llm/openrouter"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "case-insensitive dedupe keeps first occurrence",
			in:   []string{"Physics", "physics", "optics"},
			want: []string{"physics", "optics"},
		},
		{
			name: "whitespace tokens dropped",
			in:   []string{"quantum mechanics", "quantum-mechanics", "tab\tseparated"},
			want: []string{"quantum-mechanics"},
		},
		{
			name: "surrounding whitespace trimmed before the check",
			in:   []string{"  Optics  ", "OPTICS"},
			want: []string{"optics"},
		},
		{
			name: "empty strings dropped",
			in:   []string{"", "light"},
			want: []string{"light"},
		},
		{
			name: "nil input yields empty not nil",
			in:   nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCloudKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		wantKind pipeline.Kind
	}{
		{"missing key", "", pipeline.KindAuth},
		{"wrong format", "sk-proj-abcdef", pipeline.KindInvalidInput},
		{"valid prefix", "sk-or-v1-abcdef", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCloudKey(tt.key)
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantKind, pipeline.KindOf(err))
		})
	}
}

func TestParseSynthesisPayload(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantBody string
		wantErr  bool
	}{
		{
			name:     "bare json",
			raw:      `{"header_tags": ["a"], "body_text": "Plain."}`,
			wantBody: "Plain.",
		},
		{
			name:     "fenced json block",
			raw:      "Here is the note:\n```json\n{\"header_tags\": [\"a\"], \"body_text\": \"Fenced.\"}\n```\nHope that helps!",
			wantBody: "Fenced.",
		},
		{
			name:     "bare fence without language tag",
			raw:      "```\n{\"header_tags\": [], \"body_text\": \"Bare fence.\"}\n```",
			wantBody: "Bare fence.",
		},
		{
			name:     "json buried in prose",
			raw:      `Sure! {"header_tags": ["a"], "body_text": "Buried."} Anything else?`,
			wantBody: "Buried.",
		},
		{
			name:    "no json at all",
			raw:     "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "json without body text",
			raw:     `{"header_tags": ["a"]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := parseSynthesisPayload(tt.raw)
			if tt.wantErr {
				assert.Equal(t, pipeline.KindModel, pipeline.KindOf(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantBody, payload.BodyText)
		})
	}
}

// stubCloudServer mimics the OpenRouter chat completions endpoint, returning
// content as the assistant message.
func stubCloudServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newStubSynthesizer(t *testing.T, srv *httptest.Server) ISynthesizerService {
	t.Helper()
	provider := openrouter.NewProvider(srv.URL, "sk-or-test", "test-model", 5*time.Second)
	return NewSynthesizerService(provider, "sk-or-test", 5*time.Second)
}

func TestSynthesizeParsesFencedCloudResponse(t *testing.T) {
	content := "```json\n{\"header_tags\": [\"Physics\", \"physics\", \"optics\"], \"body_text\": \"Light scatters.\"}\n```"
	srv := stubCloudServer(t, http.StatusOK, content)
	synthesizer := newStubSynthesizer(t, srv)

	query := entity.Query{Seq: 7, Text: "why is the sky blue"}
	proposal := entity.Proposal{Id: 2, Text: "the scattering angle"}

	result, err := synthesizer.Synthesize(context.Background(), query, proposal)
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), result.QuerySeq)
	assert.Equal(t, 2, result.ProposalId)
	assert.Equal(t, "Light scatters.", result.Body)
	assert.Equal(t, []string{"physics", "optics"}, result.Tags)
}

func TestSynthesizeRejectedKey(t *testing.T) {
	srv := stubCloudServer(t, http.StatusUnauthorized, "")
	synthesizer := newStubSynthesizer(t, srv)

	_, err := synthesizer.Synthesize(context.Background(), entity.Query{Seq: 1, Text: "q"}, entity.Proposal{Id: 0, Text: "p"})
	assert.Equal(t, pipeline.KindAuth, pipeline.KindOf(err))
}

func TestSynthesizeUnparseableResponse(t *testing.T) {
	srv := stubCloudServer(t, http.StatusOK, "I would rather chat about the weather.")
	synthesizer := newStubSynthesizer(t, srv)

	_, err := synthesizer.Synthesize(context.Background(), entity.Query{Seq: 1, Text: "q"}, entity.Proposal{Id: 0, Text: "p"})
	assert.Equal(t, pipeline.KindModel, pipeline.KindOf(err))
}

func TestSynthesizeValidatesKeyBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	provider := openrouter.NewProvider(srv.URL, "wrong-format", "test-model", 5*time.Second)
	synthesizer := NewSynthesizerService(provider, "wrong-format", 5*time.Second)

	_, err := synthesizer.Synthesize(context.Background(), entity.Query{Seq: 1, Text: "q"}, entity.Proposal{Id: 0, Text: "p"})
	assert.Equal(t, pipeline.KindInvalidInput, pipeline.KindOf(err))
	assert.False(t, called)
}
