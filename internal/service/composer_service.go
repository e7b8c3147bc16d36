package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pipeline"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const titleMaxLen = 72

// IComposerService turns a synthesis result into a persisted-note document.
// Pure transformation, no I/O; the vault handles the bytes.
type IComposerService interface {
	Compose(result *entity.SynthesisResult, query entity.Query) *entity.AtomicNote
	Render(note *entity.AtomicNote) string
}

type composerService struct{}

func NewComposerService() IComposerService {
	return &composerService{}
}

func (s *composerService) Compose(result *entity.SynthesisResult, query entity.Query) *entity.AtomicNote {
	tags := result.Tags
	if tags == nil {
		tags = []string{}
	}
	return &entity.AtomicNote{
		Id:          uuid.New(),
		Title:       DeriveTitle(query.Text),
		Body:        result.Body,
		Tags:        tags,
		SourceQuery: query.Text,
		CreatedAt:   time.Now().UTC(),
	}
}

// Render produces the note document: a YAML frontmatter block followed by
// the body.
func (s *composerService) Render(note *entity.AtomicNote) string {
	meta, err := yaml.Marshal(note.Meta())
	if err != nil {
		// NoteMeta contains only marshalable fields; this cannot fire on
		// well-formed input.
		meta = []byte("title: " + note.Title + "\n")
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")
	b.WriteString(note.Body)
	b.WriteString("\n")
	return b.String()
}

// ParseNote recovers metadata and body from a rendered document.
func ParseNote(document string) (*entity.NoteMeta, string, error) {
	const delim = "---\n"
	if !strings.HasPrefix(document, delim) {
		return nil, "", pipeline.NewError(pipeline.KindModel, "document has no frontmatter block")
	}
	rest := document[len(delim):]
	end := strings.Index(rest, delim)
	if end < 0 {
		return nil, "", pipeline.NewError(pipeline.KindModel, "unterminated frontmatter block")
	}

	var meta entity.NoteMeta
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return nil, "", pipeline.WrapError(pipeline.KindModel, "unparseable frontmatter", err)
	}

	body := strings.TrimPrefix(rest[end+len(delim):], "\n")
	body = strings.TrimSuffix(body, "\n")
	return &meta, body, nil
}

// DeriveTitle sanitizes the query text and truncates at a word boundary.
func DeriveTitle(queryText string) string {
	title := strings.Join(strings.Fields(queryText), " ")
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, title)

	if len(title) <= titleMaxLen {
		return title
	}
	cut := strings.LastIndex(title[:titleMaxLen], " ")
	if cut <= 0 {
		// No word boundary; back the hard cut up to a rune boundary so a
		// multibyte character is never split.
		cut = titleMaxLen
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
	}
	return strings.TrimSpace(title[:cut])
}
