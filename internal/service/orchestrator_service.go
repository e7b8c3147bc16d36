package service

import (
	"context"
	"strings"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pipeline"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/events"
)

// ErrorInfo is the user-visible form of the last pipeline failure.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	State     string
	Query     *entity.Query
	Proposals *entity.ProposalSet
	Synthesis *entity.SynthesisResult
	LastError *ErrorInfo
}

// IOrchestratorService owns the pipeline state machine. All mutations are
// serialized on one event-loop goroutine; adapter calls run concurrently
// and marshal their completions back onto that goroutine, where the
// generation guard decides whether they still apply.
type IOrchestratorService interface {
	Submit(ctx context.Context, text string) (uint64, error)
	Select(ctx context.Context, proposalId int) error
	Cancel(ctx context.Context) error
	Retry(ctx context.Context) error
	Save(ctx context.Context) (string, error)
	Discard(ctx context.Context) error
	Snapshot(ctx context.Context) Snapshot
	Close()
}

type stage string

const (
	stageNone      stage = ""
	stageProposals stage = "proposals"
	stageSynthesis stage = "synthesis"
)

type orchestratorService struct {
	proposer    IProposerService
	synthesizer ISynthesizerService
	composer    IComposerService
	vault       IVaultService
	bus         *events.Bus
	log         logger.ILogger

	cmds   chan func()
	ctx    context.Context
	cancel context.CancelFunc

	// Loop-owned state. Never touched outside the loop goroutine.
	state       string
	seq         uint64
	gen         uint64 // bumped on every adapter dispatch; stale completions are dropped
	query       *entity.Query
	proposals   *entity.ProposalSet
	selection   *entity.Selection
	synthesis   *entity.SynthesisResult
	lastErr     *ErrorInfo
	failedStage stage
	inFlight    context.CancelFunc
}

func NewOrchestratorService(
	proposer IProposerService,
	synthesizer ISynthesizerService,
	composer IComposerService,
	vault IVaultService,
	bus *events.Bus,
	log logger.ILogger,
) IOrchestratorService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &orchestratorService{
		proposer:    proposer,
		synthesizer: synthesizer,
		composer:    composer,
		vault:       vault,
		bus:         bus,
		log:         log,
		cmds:        make(chan func(), 128),
		ctx:         ctx,
		cancel:      cancel,
		state:       pipeline.StateIdle,
	}
	go s.loop()
	return s
}

func (s *orchestratorService) loop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case cmd := <-s.cmds:
			cmd()
		}
	}
}

// do runs fn on the loop goroutine and waits for it.
func (s *orchestratorService) do(fn func()) {
	done := make(chan struct{})
	select {
	case s.cmds <- func() { fn(); close(done) }:
	case <-s.ctx.Done():
		return
	}
	select {
	case <-done:
	case <-s.ctx.Done():
	}
}

// post schedules fn on the loop goroutine without waiting. Used by adapter
// completion goroutines.
func (s *orchestratorService) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.ctx.Done():
	}
}

func (s *orchestratorService) Close() {
	s.cancel()
}

// --- Public operations (spec'd surface) ---

func (s *orchestratorService) Submit(ctx context.Context, text string) (uint64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, pipeline.NewError(pipeline.KindInvalidInput, "query text is empty")
	}

	var seq uint64
	s.do(func() {
		// Supersede whatever is in flight. The old request keeps running
		// until its socket notices the cancel; its completion is dropped by
		// the generation guard either way.
		s.abortInFlight()
		s.seq++
		seq = s.seq
		s.query = &entity.Query{
			Seq:       seq,
			Text:      trimmed,
			CreatedAt: time.Now().UTC(),
		}
		s.proposals = nil
		s.selection = nil
		s.synthesis = nil
		s.lastErr = nil
		s.failedStage = stageNone
		s.transition(pipeline.StateAwaitingProposals)
		s.dispatchProposals(*s.query)
	})
	return seq, nil
}

func (s *orchestratorService) Select(ctx context.Context, proposalId int) error {
	var err error
	s.do(func() {
		if s.state != pipeline.StateProposalsReady {
			err = pipeline.NewError(pipeline.KindInvalidState,
				"selection is only valid while proposals are displayed")
			return
		}
		proposal, ok := s.proposals.Get(proposalId)
		if !ok {
			err = pipeline.NewError(pipeline.KindInvalidInput, "unknown proposal id")
			return
		}
		s.selection = &entity.Selection{
			QuerySeq:   s.proposals.QuerySeq,
			ProposalId: proposalId,
		}
		s.lastErr = nil
		s.failedStage = stageNone
		s.transition(pipeline.StateAwaitingSynthesis)
		s.dispatchSynthesis(*s.query, proposal)
	})
	return err
}

func (s *orchestratorService) Cancel(ctx context.Context) error {
	s.do(func() {
		switch s.state {
		case pipeline.StateAwaitingProposals:
			s.abortInFlight()
			s.transition(pipeline.StateIdle)
		case pipeline.StateProposalsReady:
			s.proposals = nil
			s.selection = nil
			s.transition(pipeline.StateIdle)
		case pipeline.StateAwaitingSynthesis:
			s.abortInFlight()
			s.transition(pipeline.StateProposalsReady)
		default:
			// Idle and SynthesisReady: idempotent no-op.
		}
	})
	return nil
}

func (s *orchestratorService) Retry(ctx context.Context) error {
	var err error
	s.do(func() {
		switch {
		case s.state == pipeline.StateIdle && s.failedStage == stageProposals && s.query != nil:
			s.lastErr = nil
			s.failedStage = stageNone
			s.transition(pipeline.StateAwaitingProposals)
			s.dispatchProposals(*s.query)
		case s.state == pipeline.StateProposalsReady && s.selection != nil:
			proposal, ok := s.proposals.Get(s.selection.ProposalId)
			if !ok {
				err = pipeline.NewError(pipeline.KindInvalidState, "retained selection no longer resolves")
				return
			}
			s.lastErr = nil
			s.failedStage = stageNone
			s.transition(pipeline.StateAwaitingSynthesis)
			s.dispatchSynthesis(*s.query, proposal)
		default:
			err = pipeline.NewError(pipeline.KindInvalidState, "nothing to retry in the current state")
		}
	})
	return err
}

func (s *orchestratorService) Save(ctx context.Context) (string, error) {
	var (
		storedId string
		err      error
	)
	s.do(func() {
		if s.state != pipeline.StateSynthesisReady {
			err = pipeline.NewError(pipeline.KindInvalidState, "no synthesis result to save")
			return
		}
		note := s.composer.Compose(s.synthesis, *s.query)
		document := s.composer.Render(note)
		storedId, err = s.vault.Store(note, document)
		if err != nil {
			// The synthesis result is not lost; the user may retry saving.
			s.setError(err)
			return
		}
		s.publish(events.BaseEvent{
			Type: events.TypeNoteSaved,
			Data: map[string]interface{}{
				"note_id": note.Id.String(),
				"file":    storedId,
				"seq":     s.seq,
			},
			OccurredAt: time.Now().UTC(),
		})
		s.reset()
		s.transition(pipeline.StateIdle)
	})
	return storedId, err
}

func (s *orchestratorService) Discard(ctx context.Context) error {
	var err error
	s.do(func() {
		if s.state != pipeline.StateSynthesisReady {
			err = pipeline.NewError(pipeline.KindInvalidState, "no synthesis result to discard")
			return
		}
		s.reset()
		s.transition(pipeline.StateIdle)
	})
	return err
}

func (s *orchestratorService) Snapshot(ctx context.Context) Snapshot {
	var snap Snapshot
	s.do(func() {
		snap = Snapshot{
			State:     s.state,
			Query:     s.query,
			Proposals: s.proposals,
			Synthesis: s.synthesis,
			LastError: s.lastErr,
		}
	})
	return snap
}

// --- Loop internals ---

func (s *orchestratorService) dispatchProposals(query entity.Query) {
	s.gen++
	gen := s.gen
	callCtx, cancel := context.WithCancel(s.ctx)
	s.inFlight = cancel

	go func() {
		set, err := s.proposer.Propose(callCtx, query)
		cancel()
		s.post(func() {
			if gen != s.gen || query.Seq != s.seq || s.state != pipeline.StateAwaitingProposals {
				return // superseded or cancelled; drop unconditionally
			}
			s.inFlight = nil
			if err != nil {
				s.setError(err)
				s.failedStage = stageProposals
				s.transition(pipeline.StateIdle)
				return
			}
			s.proposals = set
			s.transition(pipeline.StateProposalsReady)
		})
	}()
}

func (s *orchestratorService) dispatchSynthesis(query entity.Query, proposal entity.Proposal) {
	s.gen++
	gen := s.gen
	callCtx, cancel := context.WithCancel(s.ctx)
	s.inFlight = cancel

	go func() {
		result, err := s.synthesizer.Synthesize(callCtx, query, proposal)
		cancel()
		s.post(func() {
			if gen != s.gen || query.Seq != s.seq || s.state != pipeline.StateAwaitingSynthesis {
				return
			}
			s.inFlight = nil
			if err != nil {
				s.setError(err)
				s.failedStage = stageSynthesis
				s.transition(pipeline.StateProposalsReady)
				return
			}
			s.synthesis = result
			s.transition(pipeline.StateSynthesisReady)
		})
	}()
}

// abortInFlight cancels the outstanding adapter call, if any, and bumps the
// generation so its completion can never apply.
func (s *orchestratorService) abortInFlight() {
	if s.inFlight != nil {
		s.inFlight()
		s.inFlight = nil
	}
	s.gen++
}

func (s *orchestratorService) reset() {
	s.query = nil
	s.proposals = nil
	s.selection = nil
	s.synthesis = nil
	s.lastErr = nil
	s.failedStage = stageNone
}

func (s *orchestratorService) setError(err error) {
	s.lastErr = &ErrorInfo{
		Kind:    string(pipeline.KindOf(err)),
		Message: pipeline.MessageOf(err),
	}
}

func (s *orchestratorService) transition(to string) {
	from := s.state
	s.state = to

	details := map[string]interface{}{
		"from": from,
		"to":   to,
		"seq":  s.seq,
	}
	if s.lastErr != nil {
		details["error_kind"] = s.lastErr.Kind
	}
	s.log.Info("Orchestrator", "State transition", details)

	s.publish(events.BaseEvent{
		Type:       events.TypeStateChanged,
		Data:       details,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *orchestratorService) publish(evt events.BaseEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(s.ctx, evt); err != nil {
		s.log.Warn("Orchestrator", "Failed to publish event", map[string]interface{}{
			"type":  evt.Type,
			"error": err.Error(),
		})
	}
}
