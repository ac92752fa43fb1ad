package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
)

type curriculumApi struct {
	svc curriculum.ServiceInterface
}

func registerCurriculumAPI(g *echo.Group, svc curriculum.ServiceInterface) {
	api := curriculumApi{svc: svc}

	g.GET("/curriculum/:classID", api.resolve)

	sg := g.Group("/schemes")
	sg.GET("/:subjectID", api.getScheme)
	sg.PUT("/:subjectID", api.saveScheme, reviewerMiddleware)
}

type curriculumResponse struct {
	curriculum.Resolution
	SubjectID       string                  `json:"subject_id,omitempty"`
	Competencies    []curriculum.Competency `json:"competencies,omitempty"`
	RequiredStrands []string                `json:"required_strands,omitempty"`
	Scheme          *curriculum.Scheme      `json:"scheme,omitempty"`
}

// resolve never fails on the class: an unknown or unset curriculum falls back to standard with a warning.
// With ?subject_id, the subject's CBC strands or IGCSE scheme are included.
func (api *curriculumApi) resolve(ctx echo.Context) error {
	c := ctx.Request().Context()
	res := curriculumResponse{Resolution: api.svc.Resolve(c, ctx.Param("classID"))}

	subjectID := core.CleanString(ctx.QueryParam("subject_id"))
	if subjectID == "" {
		return ctx.JSON(http.StatusOK, res)
	}
	res.SubjectID = subjectID

	switch res.Type {
	case curriculum.CBC:
		comps, err := api.svc.Competencies(c, res.ClassID, subjectID)
		if err != nil {
			return errors.Wrap(err, "getting competencies")
		}
		strands, err := api.svc.RequiredStrands(c, res.ClassID, subjectID)
		if err != nil {
			return errors.Wrap(err, "getting required strands")
		}
		res.Competencies = comps
		res.RequiredStrands = strands
	case curriculum.IGCSE:
		scheme, err := api.svc.Scheme(c, subjectID)
		if err != nil {
			return errors.Wrap(err, "getting scheme")
		}
		res.Scheme = &scheme
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *curriculumApi) getScheme(ctx echo.Context) error {
	scheme, err := api.svc.Scheme(ctx.Request().Context(), ctx.Param("subjectID"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, scheme)
}

func (api *curriculumApi) saveScheme(ctx echo.Context) error {
	var data curriculum.Scheme
	if err := bind(ctx, &data); err != nil {
		return err
	}
	data.SubjectID = ctx.Param("subjectID")

	scheme, err := api.svc.SaveScheme(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, scheme)
}
