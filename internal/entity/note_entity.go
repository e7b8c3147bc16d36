package entity

import (
	"time"

	"github.com/google/uuid"
)

// SynthesisResult is the cloud model's answer for (query, selected proposal).
// Tags arrive already normalized: lowercased, deduplicated, no whitespace
// tokens, first-occurrence order preserved.
type SynthesisResult struct {
	QuerySeq   uint64
	ProposalId int
	Body       string
	Tags       []string
}

// NoteMeta is the YAML frontmatter block of a persisted note.
type NoteMeta struct {
	Id          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Tags        []string  `yaml:"tags"`
	SourceQuery string    `yaml:"source_query"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// AtomicNote is the persisted artifact. Tags is never nil; every tag is a
// bare or hyphenated token because downstream note-graph consumers parse
// tags positionally. Id doubles as the filename stem.
type AtomicNote struct {
	Id          uuid.UUID
	Title       string
	Body        string
	Tags        []string
	SourceQuery string
	CreatedAt   time.Time
}

func (n *AtomicNote) Meta() NoteMeta {
	return NoteMeta{
		Id:          n.Id.String(),
		Title:       n.Title,
		Tags:        n.Tags,
		SourceQuery: n.SourceQuery,
		CreatedAt:   n.CreatedAt,
	}
}
