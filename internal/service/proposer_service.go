package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pipeline"
	"ai-orchestrator-be/pkg/llm"
)

// proposerPrompt instructs the local model to return refinement angles as a
// JSON object. Small local models drift from the format easily, hence the
// heavy-handed wording and the tolerant parsing below.
const proposerPrompt = `You are an inquisitive AI research partner.

You MUST generate EXACTLY %d proposals about this query: "%s"

Each proposal is one candidate refinement of the query: a brief context
statement followed by the sharper question it suggests.

Your EXACT output must be valid JSON:
{
  "proposals": [
    "Brief context statement - I wonder about this specific aspect?",
    "Another context statement - I'm wondering if this could be true?",
    "Third context statement - I wonder about this different angle?"
  ]
}`

type IProposerService interface {
	Propose(ctx context.Context, query entity.Query) (*entity.ProposalSet, error)
}

type proposerService struct {
	provider      llm.LLMProvider
	proposalCount int
	retryAttempts int
	timeout       time.Duration
}

func NewProposerService(provider llm.LLMProvider, proposalCount, retryAttempts int, timeout time.Duration) IProposerService {
	if proposalCount <= 0 {
		proposalCount = 3
	}
	if retryAttempts < 0 {
		retryAttempts = 0
	}
	return &proposerService{
		provider:      provider,
		proposalCount: proposalCount,
		retryAttempts: retryAttempts,
		timeout:       timeout,
	}
}

func (s *proposerService) Propose(ctx context.Context, query entity.Query) (*entity.ProposalSet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf(proposerPrompt, s.proposalCount, query.Text)
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	texts, err := parseProposalTexts(raw)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, pipeline.NewError(pipeline.KindModel, "local model returned no proposals")
	}
	if len(texts) > s.proposalCount {
		texts = texts[:s.proposalCount]
	}

	proposals := make([]entity.Proposal, 0, len(texts))
	for i, text := range texts {
		proposals = append(proposals, entity.Proposal{
			Id:   i,
			Text: text,
		})
	}

	return &entity.ProposalSet{
		QuerySeq:  query.Seq,
		Proposals: proposals,
	}, nil
}

// generate calls the local model, reissuing the request for refused
// connections. Local servers drop sockets while swapping models in and out
// of memory; a timeout, by contrast, is surfaced so the user decides.
func (s *proposerService) generate(ctx context.Context, prompt string) (string, error) {
	var (
		raw string
		err error
	)
	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		raw, err = s.provider.Generate(ctx, prompt, llm.WithJSONOutput())
		if err == nil || pipeline.KindOf(err) != pipeline.KindNetwork || ctx.Err() != nil {
			break
		}
	}
	return raw, err
}

// proposalItem tolerates both reply shapes local models produce: a plain
// string, or {"context": ..., "question": ...}.
type proposalItem struct {
	text string
}

func (p *proposalItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.text = s
		return nil
	}
	var obj struct {
		Context  string `json:"context"`
		Question string `json:"question"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.text = strings.TrimSpace(obj.Context + " - " + obj.Question)
	return nil
}

func parseProposalTexts(raw string) ([]string, error) {
	jsonStart := strings.Index(raw, "{")
	if jsonStart < 0 {
		return nil, pipeline.NewError(pipeline.KindModel, "no JSON object found in local model response")
	}

	var parsed struct {
		Proposals []proposalItem `json:"proposals"`
	}
	if err := json.Unmarshal([]byte(raw[jsonStart:]), &parsed); err != nil {
		return nil, pipeline.WrapError(pipeline.KindModel, "failed to parse proposals JSON", err)
	}

	texts := make([]string, 0, len(parsed.Proposals))
	for _, item := range parsed.Proposals {
		if t := strings.TrimSpace(item.text); t != "" {
			texts = append(texts, t)
		}
	}
	return texts, nil
}
