package install

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/logger"
)

//go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks github.com/agent-matrix/matrix-hub/internal/install GatewayInstaller

// GatewayInstaller registers a plan's mcp_registration against the
// gateway. It is optional: an Executor without one simply skips the
// step (spec.md §4.F is a separate component, wired in by the caller).
type GatewayInstaller interface {
	Register(ctx context.Context, uid string, reg *Plan) ([]LockGatewayReg, error)
}

// Executor runs a Plan step by step, honoring declared order and
// fatal semantics (spec.md §4.E).
type Executor struct {
	httpClient *http.Client
	gateway    GatewayInstaller
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithGateway wires the gateway registration step.
func WithGateway(g GatewayInstaller) ExecutorOption {
	return func(e *Executor) { e.gateway = g }
}

// NewExecutor builds an Executor with a 30s default artifact-download
// deadline per spec.md §5.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs plan against its target directory, writes the
// lockfile, and returns the full InstallResult. It never returns an
// error for step-level failures (those are captured in Results); it
// returns an error only for safety violations or I/O it cannot
// recover from (e.g. the target directory cannot be created).
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*InstallResult, error) {
	if err := os.MkdirAll(plan.Target, 0o755); err != nil {
		return nil, apperrors.NewIntegrityError("create target directory", err)
	}

	prior := readLockfile(plan.Target)
	applied := appliedArtifactRefs(prior, plan.UID)

	var results []StepResult
	var filesWritten []string
	lockEntity := LockEntity{ID: plan.UID}

	aborted := false
	for _, step := range plan.Artifacts {
		if aborted {
			break
		}
		if _, ok := applied[step.Kind+":"+step.Ref()]; ok {
			res := StepResult{Step: "artifact:" + step.Kind + ":" + step.Ref(), OK: true, Extra: map[string]any{"skipped": true}}
			results = append(results, res)
			lockEntity.ArtifactsApplied = append(lockEntity.ArtifactsApplied, LockArtifact{Kind: step.Kind, Ref: step.Ref()})
			continue
		}

		res, err := e.applyArtifactStep(ctx, plan.Target, step)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		if res.OK {
			lockEntity.ArtifactsApplied = append(lockEntity.ArtifactsApplied, LockArtifact{Kind: step.Kind, Ref: step.Ref()})
			if dest, ok := res.Extra["destination"]; ok {
				if s, ok := dest.(string); ok {
					filesWritten = append(filesWritten, s)
				}
			}
		}
		if !res.OK && step.Fatal {
			aborted = true
			logger.Warnw("install step fatal failure, aborting remaining steps",
				"uid", plan.UID, "step", res.Step)
		}
	}

	if !aborted {
		for _, step := range plan.Adapters {
			res, written, err := e.applyAdapterStep(plan.Target, plan.UID, step)
			if err != nil {
				return nil, err
			}
			results = append(results, res)
			if written != "" {
				filesWritten = append(filesWritten, written)
				lockEntity.AdaptersWritten = append(lockEntity.AdaptersWritten, written)
			}
		}
	}

	if !aborted && plan.MCPRegistration != nil && e.gateway != nil {
		start := time.Now()
		regs, err := e.gateway.Register(ctx, plan.UID, plan)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			results = append(results, StepResult{Step: "gateway", OK: false, ElapsedSecs: elapsed, StderrExcerpt: err.Error()})
		} else {
			results = append(results, StepResult{Step: "gateway", OK: true, ElapsedSecs: elapsed})
			lockEntity.GatewayRegistrations = append(lockEntity.GatewayRegistrations, regs...)
		}
	}

	lf := prior
	if lf == nil {
		lf = &Lockfile{Version: lockfileVersion}
	}
	lf.Entities = replaceLockEntity(lf.Entities, lockEntity)
	if err := writeLockfile(plan.Target, lf); err != nil {
		return nil, err
	}

	return &InstallResult{
		Plan:         plan,
		Results:      results,
		FilesWritten: filesWritten,
		Lockfile:     lf,
	}, nil
}

func (e *Executor) applyArtifactStep(ctx context.Context, target string, step ArtifactStep) (StepResult, error) {
	switch step.Kind {
	case KindPyPI:
		return applyPyPI(step), nil
	case KindDocker:
		return applyDocker(step), nil
	case KindGit:
		return applyGit(ctx, target, step)
	case KindZip:
		return applyZip(ctx, e.httpClient, target, step)
	default:
		return StepResult{Step: "artifact:" + step.Kind, OK: false, StderrExcerpt: "unknown artifact kind"}, nil
	}
}

func (e *Executor) applyAdapterStep(target, uid string, step AdapterStep) (StepResult, string, error) {
	content, err := renderAdapter(step, uid, target)
	if err != nil {
		return StepResult{Step: "adapter:" + step.TemplateKey, OK: false, StderrExcerpt: err.Error()}, "", nil
	}

	destPath, err := safeJoin(target, step.DestPath)
	if err != nil {
		return StepResult{}, "", err
	}

	if existing, readErr := os.ReadFile(destPath); readErr == nil && contentHash(existing) == contentHash(content) {
		return StepResult{
			Step: "adapter:" + step.TemplateKey, OK: true,
			Extra: map[string]any{"skipped": true},
		}, "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return StepResult{}, "", apperrors.NewIntegrityError("create adapter directory", err)
	}
	if err := os.WriteFile(destPath, content, 0o644); err != nil {
		return StepResult{}, "", apperrors.NewIntegrityError("write adapter file", err)
	}

	return StepResult{Step: "adapter:" + step.TemplateKey, OK: true}, step.DestPath, nil
}

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func replaceLockEntity(entities []LockEntity, updated LockEntity) []LockEntity {
	for i, e := range entities {
		if e.ID == updated.ID {
			entities[i] = updated
			return entities
		}
	}
	return append(entities, updated)
}
