package curriculum

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/gradebook/core"
)

const (
	WarnClassNotFound  = "class not found"
	WarnNoCurriculum   = "no curriculum assigned"
	WarnLookupFailed   = "class lookup failed"
	warnInvalidPattern = "invalid curriculum type: got %s, expected one of {%s}"
)

// ClassRepository reads classes from the store.
// A missing class is reported with a *core.NotFoundError.
type ClassRepository interface {
	GetClass(ctx context.Context, id string) (Class, error)
}

// Resolver is the single place curriculum fallback happens.
// Every other component works from its Resolution.
type Resolver struct {
	classes ClassRepository
	logger  core.Logger
}

func NewResolver(classes ClassRepository, logger core.Logger) *Resolver {
	return &Resolver{classes: classes, logger: logger}
}

// Resolve never fails: unknown, unset or invalid curricula resolve to Standard with a warning.
// An empty classID resolves to Standard without a warning.
func (r *Resolver) Resolve(ctx context.Context, classID string) Resolution {
	classID = core.CleanString(classID)
	res := Resolution{ClassID: classID, Type: Standard}
	if classID == "" {
		return res
	}

	class, err := r.classes.GetClass(ctx, classID)
	if err != nil {
		if core.IsNotFound(err) {
			res.Warning = WarnClassNotFound
		} else {
			res.Warning = WarnLookupFailed
			r.logger.Error(fmt.Sprintf("resolving curriculum of class %s: %v", classID, err), err)
		}
		return res
	}
	return ResolveClass(class)
}

// ResolveClass applies the fallback rules to an already loaded class.
func ResolveClass(class Class) Resolution {
	res := Resolution{ClassID: class.ID, Type: Standard}

	raw := class.RawCurriculum()
	if raw == "" {
		res.Warning = WarnNoCurriculum
		return res
	}
	t, ok := ParseType(raw)
	if !ok {
		res.Warning = fmt.Sprintf(warnInvalidPattern, raw, joinTypes())
		return res
	}
	res.Type = t
	return res
}

func joinTypes() string {
	names := make([]string, 0, len(Types))
	for _, t := range Types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
