package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/actor"
	"github.com/trezcool/gradebook/core/audit"
	"github.com/trezcool/gradebook/core/grade"
)

type gradeApi struct {
	svc      grade.ServiceInterface
	audit    audit.ServiceInterface
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, svc grade.ServiceInterface, auditSvc audit.ServiceInterface, validate *validator.Validate) {
	api := gradeApi{svc: svc, audit: auditSvc, validate: validate}

	gg := g.Group("/grades")
	gg.GET("", api.sheet)
	gg.PUT("", api.saveDraft)

	bg := gg.Group("/bulk")
	bg.POST("/submit", api.bulk(svc.BulkSubmit))
	bg.POST("/approve", api.bulk(svc.BulkApprove))
	bg.POST("/reject", api.bulk(svc.BulkReject))
	bg.POST("/release", api.bulk(svc.BulkRelease))

	// detail endpoints
	dg := gg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.GET("/audit", api.history)
	dg.POST("/submit", api.move(svc.Submit))
	dg.POST("/approve", api.move(svc.Approve))
	dg.POST("/release", api.move(svc.Release))
	dg.POST("/reject", api.reject)
	dg.POST("/override", api.override)

	g.GET("/summaries", api.summaries)
}

type (
	reasonInput struct {
		Reason string `json:"reason" validate:"max=500"`
	}

	bulkResponse struct {
		grade.BulkResult
		Message string `json:"message"`
	}
)

// Validate checks the length of the reason; blank reasons are left to the workflow.
func (in *reasonInput) Validate(validate *validator.Validate) error {
	in.Reason = core.CleanString(in.Reason)
	return validate.Struct(in)
}

// Handlers

func (api *gradeApi) saveDraft(ctx echo.Context) error {
	a, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data grade.DraftInput
	if err := bind(ctx, &data); err != nil {
		return err
	}

	res, err := api.svc.SaveDraft(ctx.Request().Context(), a, data)
	if err != nil {
		return err
	}
	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, res)
}

func (api *gradeApi) sheet(ctx echo.Context) error {
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	sheet, err := api.svc.ClassSheet(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sheet.List())
}

func (api *gradeApi) summaries(ctx echo.Context) error {
	filter, err := bindFilter(ctx)
	if err != nil {
		return err
	}
	sums, err := api.svc.Summaries(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sums)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	g, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) history(ctx echo.Context) error {
	c := ctx.Request().Context()
	if _, err := api.svc.Get(c, ctx.Param("id")); err != nil {
		return err
	}
	entries, err := api.audit.History(c, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

type moveFunc func(ctx context.Context, a actor.Actor, id string) (grade.Grade, error)

func (api *gradeApi) move(fn moveFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		a, err := getContextActor(ctx)
		if err != nil {
			return err
		}
		g, err := fn(ctx.Request().Context(), a, ctx.Param("id"))
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, g)
	}
}

func (api *gradeApi) reject(ctx echo.Context) error {
	a, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data reasonInput
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	g, err := api.svc.Reject(ctx.Request().Context(), a, ctx.Param("id"), data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) override(ctx echo.Context) error {
	a, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	var data grade.OverrideInput
	if err := bind(ctx, &data); err != nil {
		return err
	}
	g, err := api.svc.Override(ctx.Request().Context(), a, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, g)
}

type bulkFunc func(ctx context.Context, a actor.Actor, in grade.BulkInput) (grade.BulkResult, error)

// bulk answers 200 even when only some grades moved; see BulkResult.
func (api *gradeApi) bulk(fn bulkFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		a, err := getContextActor(ctx)
		if err != nil {
			return err
		}
		var data grade.BulkInput
		if err := bind(ctx, &data); err != nil {
			return err
		}
		res, err := fn(ctx.Request().Context(), a, data)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, bulkResponse{BulkResult: res, Message: res.Message()})
	}
}
