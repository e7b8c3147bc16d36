package entity

import (
	"time"
)

// Query is an immutable user question. Seq is assigned by the orchestrator
// at submission time and is the staleness guard: adapter responses carrying
// a Seq that no longer matches the current one are dropped.
type Query struct {
	Seq       uint64
	Text      string
	CreatedAt time.Time
}

// Proposal is one candidate refinement produced by the local model.
// Id is the index within its generating batch.
type Proposal struct {
	Id        int
	Text      string
	Rationale string
}

// ProposalSet is the ordered batch of proposals for exactly one query.
// Immutable once produced.
type ProposalSet struct {
	QuerySeq  uint64
	Proposals []Proposal
}

// Contains reports whether the set holds a proposal with the given id.
func (ps *ProposalSet) Contains(id int) bool {
	for _, p := range ps.Proposals {
		if p.Id == id {
			return true
		}
	}
	return false
}

// Get returns the proposal with the given id.
func (ps *ProposalSet) Get(id int) (Proposal, bool) {
	for _, p := range ps.Proposals {
		if p.Id == id {
			return p, true
		}
	}
	return Proposal{}, false
}

// Selection references exactly one proposal within the current set.
type Selection struct {
	QuerySeq   uint64
	ProposalId int
}
