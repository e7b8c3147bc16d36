package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/controller"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/service"
	"ai-orchestrator-be/internal/websocket"
	"ai-orchestrator-be/pkg/events"
	"ai-orchestrator-be/pkg/llm/factory"
	"ai-orchestrator-be/pkg/llm/openrouter"
)

type Container struct {
	// Controllers
	PipelineController controller.IPipelineController
	CatalogController  controller.ICatalogController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	Orchestrator    service.IOrchestratorService

	// Session Event Bus & presentation fan-out
	Bus          *events.Bus
	WebSocketHub *websocket.Hub
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	bus := events.NewBus()

	// 3. Model transports
	localTimeout := time.Duration(cfg.Local.TimeoutSeconds) * time.Second
	cloudTimeout := time.Duration(cfg.Cloud.TimeoutSeconds) * time.Second

	detector := factory.NewDetector()
	localProvider, localLister := detector.NewLocalProvider(
		context.Background(),
		cfg.Local.Endpoint,
		cfg.Local.Model,
		localTimeout,
	)
	log.Printf("[INFO] Using local endpoint: %s (%s)", cfg.Local.Endpoint, cfg.Local.Model)

	cloudProvider := openrouter.NewProvider(cfg.Cloud.BaseURL, cfg.Cloud.APIKey, cfg.Cloud.Model, cloudTimeout)
	log.Printf("[INFO] Using cloud model: %s", cfg.Cloud.Model)

	// 4. Services
	proposer := service.NewProposerService(localProvider, cfg.Local.ProposalCount, cfg.Local.RetryAttempts, localTimeout)
	synthesizer := service.NewSynthesizerService(cloudProvider, cfg.Cloud.APIKey, cloudTimeout)
	composer := service.NewComposerService()

	vault, err := service.NewVaultService(cfg.Vault.NotesDir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize notes vault: %v", err)
	}

	orchestrator := service.NewOrchestratorService(proposer, synthesizer, composer, vault, bus, sysLogger)

	catalog := service.NewCatalogService(localLister, cloudProvider)

	// 5. Presentation fan-out
	hub := websocket.NewHub(sysLogger)
	consumer := service.NewConsumerService(bus, hub, sysLogger)

	return &Container{
		PipelineController: controller.NewPipelineController(orchestrator),
		CatalogController:  controller.NewCatalogController(catalog),
		ConsumerService:    consumer,
		Orchestrator:       orchestrator,
		Bus:                bus,
		WebSocketHub:       hub,
	}
}
