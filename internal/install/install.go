package install

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/manifest"
)

// Installer resolves an install request (by UID or inline manifest)
// into a Plan and runs it through an Executor, coalescing concurrent
// requests for the same (uid, target) pair (spec.md §5).
type Installer struct {
	store    catalog.Store
	executor *Executor
	group    singleflight.Group
}

// NewInstaller builds an Installer backed by store and executor.
func NewInstaller(store catalog.Store, executor *Executor) *Installer {
	return &Installer{store: store, executor: executor}
}

// Request is the input to Install: either UID (resolved against the
// Catalog Store) or InlineManifest (validated fresh) must be set.
type Request struct {
	UID            string
	InlineManifest []byte
	Target         string
}

// Install resolves req to a manifest, derives a Plan, and executes
// it. Concurrent calls for the same (uid, target) share one in-flight
// execution and receive the same *InstallResult (spec.md §5).
func (i *Installer) Install(ctx context.Context, req Request) (*InstallResult, error) {
	m, err := i.resolveManifest(ctx, req)
	if err != nil {
		return nil, err
	}

	uid := catalog.UID(catalog.EntityType(m.Type), m.ID, m.Version)
	key := uid + "@" + req.Target

	v, err, _ := i.group.Do(key, func() (any, error) {
		plan, err := DerivePlan(m, req.Target)
		if err != nil {
			return nil, err
		}
		return i.executor.Execute(ctx, plan)
	})
	if err != nil {
		return nil, err
	}
	return v.(*InstallResult), nil
}

func (i *Installer) resolveManifest(ctx context.Context, req Request) (*manifest.Manifest, error) {
	if len(req.InlineManifest) > 0 {
		return manifest.Validate(req.InlineManifest)
	}
	if req.UID == "" {
		return nil, apperrors.NewInvalidRequestError("install request requires uid or inline manifest", nil)
	}
	entity, err := i.store.Get(ctx, req.UID)
	if err != nil {
		return nil, err
	}
	return manifest.Validate(entity.Manifest)
}
