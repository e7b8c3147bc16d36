package controller

import (
	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICatalogController interface {
	RegisterRoutes(r fiber.Router)
	LocalModels(ctx *fiber.Ctx) error
	CloudModels(ctx *fiber.Ctx) error
}

type catalogController struct {
	catalogService service.ICatalogService
}

func NewCatalogController(catalogService service.ICatalogService) ICatalogController {
	return &catalogController{
		catalogService: catalogService,
	}
}

func (c *catalogController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/models/v1")
	h.Get("local", c.LocalModels)
	h.Get("cloud", c.CloudModels)
}

func (c *catalogController) LocalModels(ctx *fiber.Ctx) error {
	models, err := c.catalogService.LocalModels(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Local models", dto.LocalModelsResponse{Models: models}))
}

func (c *catalogController) CloudModels(ctx *fiber.Ctx) error {
	models, err := c.catalogService.CloudModels(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cloud models", models))
}
