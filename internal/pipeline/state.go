package pipeline

// Pipeline states. Exactly one is current at any time; transitions are
// owned by the orchestrator's event loop.
const (
	StateIdle              = "IDLE"
	StateAwaitingProposals = "AWAITING_PROPOSALS"
	StateProposalsReady    = "PROPOSALS_READY"
	StateAwaitingSynthesis = "AWAITING_SYNTHESIS"
	StateSynthesisReady    = "SYNTHESIS_READY"
)
