package gateway

import (
	"context"
	"time"

	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/install"
	"github.com/agent-matrix/matrix-hub/internal/logger"
	"github.com/agent-matrix/matrix-hub/internal/manifest"
)

const asyncRegistrationBudget = 30 * time.Second

// Registrar adapts Client to the ingest.GatewayRegistrar and
// install.GatewayInstaller interfaces, so ingest's best-effort async
// registration and the install executor's synchronous registration
// step both go through the same gateway orchestration.
type Registrar struct {
	client *Client
	store  catalog.Store
}

// NewRegistrar builds a Registrar. store is used to record the
// outcome of best-effort async registrations (RegisterAsync) on the
// Entity; it is not consulted by the synchronous Register path, whose
// caller (the install executor) already owns outcome reporting.
func NewRegistrar(client *Client, store catalog.Store) *Registrar {
	return &Registrar{client: client, store: store}
}

// RegisterAsync implements ingest.GatewayRegistrar: a fire-and-forget
// best-effort registration whose outcome is recorded on the Entity
// (gateway_registered_at, gateway_error) rather than surfaced to the
// ingest caller (spec.md §4.C).
func (r *Registrar) RegisterAsync(uid string, m *manifest.Manifest) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncRegistrationBudget)
		defer cancel()

		_, err := r.client.Register(ctx, m.MCPRegistration)
		registrationErr := ""
		if err != nil {
			registrationErr = err.Error()
			logger.Warnw("best-effort gateway registration failed", "uid", uid, "error", err)
		}
		if markErr := r.store.MarkGatewayRegistered(ctx, uid, err == nil, registrationErr); markErr != nil {
			logger.Warnw("failed to record gateway registration outcome", "uid", uid, "error", markErr)
		}
	}()
}

// Register implements install.GatewayInstaller: a synchronous
// registration used as the install executor's final, non-fatal step.
func (r *Registrar) Register(ctx context.Context, uid string, plan *install.Plan) ([]install.LockGatewayReg, error) {
	if plan.MCPRegistration == nil {
		return nil, nil
	}
	outcome, err := r.client.Register(ctx, plan.MCPRegistration)
	if outcome == nil {
		return nil, err
	}
	return outcome.Registrations, err
}
