package service

import (
	"os"
	"path/filepath"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pipeline"
)

// IVaultService is the persistence sink: it owns file naming and directory
// layout for composed notes.
type IVaultService interface {
	Store(note *entity.AtomicNote, document string) (string, error)
}

type vaultService struct {
	dir string
}

func NewVaultService(dir string) (IVaultService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pipeline.WrapError(pipeline.KindPersistence, "cannot create notes directory", err)
	}
	return &vaultService{dir: dir}, nil
}

func (s *vaultService) Store(note *entity.AtomicNote, document string) (string, error) {
	filename := note.Id.String() + ".md"
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		return "", pipeline.WrapError(pipeline.KindPersistence, "failed to write note file", err)
	}
	return filename, nil
}
