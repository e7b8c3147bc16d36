package controller

import (
	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IPipelineController is the inbound edge of the session event bus: it
// translates HTTP intents into the orchestrator's public operations. No
// business logic lives here.
type IPipelineController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Retry(ctx *fiber.Ctx) error
	Save(ctx *fiber.Ctx) error
	Discard(ctx *fiber.Ctx) error
	State(ctx *fiber.Ctx) error
}

type pipelineController struct {
	orchestrator service.IOrchestratorService
}

func NewPipelineController(orchestrator service.IOrchestratorService) IPipelineController {
	return &pipelineController{
		orchestrator: orchestrator,
	}
}

func (c *pipelineController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/pipeline/v1")
	h.Post("query", c.Submit)
	h.Post("selection", c.Select)
	h.Post("cancel", c.Cancel)
	h.Post("retry", c.Retry)
	h.Post("save", c.Save)
	h.Post("discard", c.Discard)
	h.Get("state", c.State)
}

func (c *pipelineController) Submit(ctx *fiber.Ctx) error {
	var req dto.SubmitQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	seq, err := c.orchestrator.Submit(ctx.Context(), req.Text)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Query submitted", dto.SubmitQueryResponse{Seq: seq}))
}

func (c *pipelineController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectProposalRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.orchestrator.Select(ctx.Context(), *req.ProposalId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Proposal selected", nil))
}

func (c *pipelineController) Cancel(ctx *fiber.Ctx) error {
	if err := c.orchestrator.Cancel(ctx.Context()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancelled", nil))
}

func (c *pipelineController) Retry(ctx *fiber.Ctx) error {
	if err := c.orchestrator.Retry(ctx.Context()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Retrying failed stage", nil))
}

func (c *pipelineController) Save(ctx *fiber.Ctx) error {
	file, err := c.orchestrator.Save(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Note saved", dto.SaveNoteResponse{File: file}))
}

func (c *pipelineController) Discard(ctx *fiber.Ctx) error {
	if err := c.orchestrator.Discard(ctx.Context()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Synthesis discarded", nil))
}

func (c *pipelineController) State(ctx *fiber.Ctx) error {
	snap := c.orchestrator.Snapshot(ctx.Context())

	res := dto.PipelineStateResponse{
		State: snap.State,
	}
	if snap.Query != nil {
		res.Seq = snap.Query.Seq
		res.QueryText = snap.Query.Text
		submitted := snap.Query.CreatedAt
		res.Submitted = &submitted
	}
	if snap.Proposals != nil {
		for _, p := range snap.Proposals.Proposals {
			res.Proposals = append(res.Proposals, dto.ProposalView{Id: p.Id, Text: p.Text})
		}
	}
	if snap.Synthesis != nil {
		res.Synthesis = &dto.SynthesisView{
			Body: snap.Synthesis.Body,
			Tags: snap.Synthesis.Tags,
		}
	}
	if snap.LastError != nil {
		res.LastError = &dto.LastErrorView{
			Kind:    snap.LastError.Kind,
			Message: snap.LastError.Message,
		}
	}

	return ctx.JSON(serverutils.SuccessResponse("Pipeline state", res))
}
