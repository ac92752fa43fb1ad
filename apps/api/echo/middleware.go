package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/actor"
)

// actorMiddleware rejects tokens without a subject or with a role the engine does not know.
func actorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		a, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}
		if a.ID == "" {
			return errUnauthorized
		}
		if actor.RolePriority(a.Role) == 0 {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

func reviewerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		a, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}
		if !a.IsReviewer() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}
