package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pipeline"
	"ai-orchestrator-be/pkg/llm"
)

// CloudKeyPrefix is OpenRouter's credential format. Keys that don't match
// are rejected locally, before any network round trip.
const CloudKeyPrefix = "sk-or-"

const synthesizerPrompt = `You are an expert-level AI Synthesizer. Your task is to answer the user's prompt by generating a concise, "atomic note" of knowledge.

CRITICAL OUTPUT CONSTRAINTS:

Header (Metadata): You MUST generate a set of 3-5 semantic keywords or tags that capture the absolute essence of the topic. These tags are for a knowledge graph.

Body (Content): The main response MUST be a maximum of four (4) sentences. It must be a dense, self-contained summary of the most critical information.

OUTPUT FORMAT (JSON):
Your final output MUST be a single, valid JSON object with two keys: header_tags and body_text.

{
  "header_tags": ["keyword1", "keyword2", "keyword3"],
  "body_text": "Your concise, 3-4 sentence summary goes here."
}

USER PROMPT:
`

type ISynthesizerService interface {
	Synthesize(ctx context.Context, query entity.Query, proposal entity.Proposal) (*entity.SynthesisResult, error)
}

type synthesizerService struct {
	provider llm.LLMProvider
	apiKey   string
	timeout  time.Duration
}

func NewSynthesizerService(provider llm.LLMProvider, apiKey string, timeout time.Duration) ISynthesizerService {
	return &synthesizerService{
		provider: provider,
		apiKey:   apiKey,
		timeout:  timeout,
	}
}

// ValidateCloudKey gates malformed credentials without network cost.
func ValidateCloudKey(apiKey string) error {
	if apiKey == "" {
		return pipeline.NewError(pipeline.KindAuth, "cloud api key is not configured")
	}
	if !strings.HasPrefix(apiKey, CloudKeyPrefix) {
		return pipeline.NewError(pipeline.KindInvalidInput,
			"cloud api key does not match the expected '"+CloudKeyPrefix+"' format")
	}
	return nil
}

func (s *synthesizerService) Synthesize(ctx context.Context, query entity.Query, proposal entity.Proposal) (*entity.SynthesisResult, error) {
	if err := ValidateCloudKey(s.apiKey); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userPrompt := "Original question: " + query.Text + "\nChosen angle: " + proposal.Text
	raw, err := s.provider.Generate(ctx, synthesizerPrompt+userPrompt, llm.WithJSONOutput())
	if err != nil {
		return nil, err
	}

	note, err := parseSynthesisPayload(raw)
	if err != nil {
		return nil, err
	}

	return &entity.SynthesisResult{
		QuerySeq:   query.Seq,
		ProposalId: proposal.Id,
		Body:       note.BodyText,
		Tags:       NormalizeTags(note.HeaderTags),
	}, nil
}

type synthesisPayload struct {
	HeaderTags []string `json:"header_tags"`
	BodyText   string   `json:"body_text"`
}

// parseSynthesisPayload tries the parsing strategies in order: fenced
// markdown block, direct parse, brace scan. Cloud models wrap JSON in prose
// often enough that all three earn their keep.
func parseSynthesisPayload(raw string) (*synthesisPayload, error) {
	clean := extractFencedJSON(raw)

	var payload synthesisPayload
	if err := json.Unmarshal([]byte(clean), &payload); err == nil && payload.BodyText != "" {
		return &payload, nil
	}

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(clean[start:end+1]), &payload); err == nil && payload.BodyText != "" {
			return &payload, nil
		}
	}

	return nil, pipeline.NewError(pipeline.KindModel, "cloud response could not be understood")
}

func extractFencedJSON(content string) string {
	for _, fence := range []string{"```json", "```"} {
		open := strings.Index(content, fence)
		if open < 0 {
			continue
		}
		rest := content[open+len(fence):]
		close := strings.Index(rest, "```")
		if close < 0 {
			continue
		}
		inner := strings.TrimSpace(rest[:close])
		// Skip a language identifier line left by the bare fence.
		if !strings.HasPrefix(inner, "{") {
			if nl := strings.Index(inner, "\n"); nl >= 0 {
				inner = strings.TrimSpace(inner[nl:])
			}
		}
		if strings.HasPrefix(inner, "{") {
			return inner
		}
	}
	return content
}

// NormalizeTags lowercases, deduplicates (first occurrence wins), and drops
// tags containing whitespace. Downstream note-graph consumers parse tags
// positionally, so the result is never nil.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || strings.ContainsAny(t, " \t\n") {
			continue
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		normalized = append(normalized, t)
	}
	return normalized
}
