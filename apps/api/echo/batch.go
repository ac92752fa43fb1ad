package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/batch"
)

type batchApi struct {
	svc      batch.ServiceInterface
	validate *validator.Validate
}

func registerBatchAPI(g *echo.Group, svc batch.ServiceInterface, validate *validator.Validate) {
	api := batchApi{svc: svc, validate: validate}

	bg := g.Group("/batches/:id")
	bg.GET("", api.retrieve)
	bg.POST("/recompute", api.recompute, reviewerMiddleware)
	bg.PUT("/notes", api.setNotes)
}

type notesInput struct {
	Notes string `json:"principal_notes" validate:"max=2000"`
}

func (in *notesInput) Validate(validate *validator.Validate) error {
	in.Notes = core.CleanString(in.Notes)
	return validate.Struct(in)
}

func (api *batchApi) retrieve(ctx echo.Context) error {
	b, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) recompute(ctx echo.Context) error {
	b, err := api.svc.RecomputeStatus(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *batchApi) setNotes(ctx echo.Context) error {
	a, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data notesInput
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	b, err := api.svc.SetNotes(ctx.Request().Context(), a, ctx.Param("id"), data.Notes)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}
