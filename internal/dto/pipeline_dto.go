package dto

import (
	"time"
)

type SubmitQueryRequest struct {
	Text string `json:"text" validate:"required"`
}

type SubmitQueryResponse struct {
	Seq uint64 `json:"seq"`
}

type SelectProposalRequest struct {
	ProposalId *int `json:"proposal_id" validate:"required,min=0"`
}

type SaveNoteResponse struct {
	File string `json:"file"`
}

type ProposalView struct {
	Id   int    `json:"id"`
	Text string `json:"text"`
}

type SynthesisView struct {
	Body string   `json:"body"`
	Tags []string `json:"tags"`
}

type LastErrorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type PipelineStateResponse struct {
	State     string         `json:"state"`
	Seq       uint64         `json:"seq"`
	QueryText string         `json:"query_text,omitempty"`
	Submitted *time.Time     `json:"submitted,omitempty"`
	Proposals []ProposalView `json:"proposals,omitempty"`
	Synthesis *SynthesisView `json:"synthesis,omitempty"`
	LastError *LastErrorView `json:"last_error,omitempty"`
}

type LocalModelsResponse struct {
	Models []string `json:"models"`
}
