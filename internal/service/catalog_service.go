package service

import (
	"context"

	"ai-orchestrator-be/pkg/llm/factory"
	"ai-orchestrator-be/pkg/llm/openrouter"
)

// ICatalogService lists the models available on both ends for the
// presentation layer's pickers.
type ICatalogService interface {
	LocalModels(ctx context.Context) ([]string, error)
	CloudModels(ctx context.Context) ([]openrouter.Model, error)
}

type catalogService struct {
	localLister factory.LocalModelLister
	cloud       *openrouter.Provider
}

func NewCatalogService(localLister factory.LocalModelLister, cloud *openrouter.Provider) ICatalogService {
	return &catalogService{
		localLister: localLister,
		cloud:       cloud,
	}
}

func (s *catalogService) LocalModels(ctx context.Context) ([]string, error) {
	return s.localLister.ListModels(ctx)
}

func (s *catalogService) CloudModels(ctx context.Context) ([]openrouter.Model, error) {
	return s.cloud.ListModels(ctx)
}
