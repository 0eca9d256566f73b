package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agent-matrix/matrix-hub/internal/install"
	"github.com/agent-matrix/matrix-hub/internal/manifest"
)

// slugEnvelope extracts the fields createOrResolve needs to match a
// manifest-declared tool/resource/prompt against the gateway's
// existing records on a 409.
type slugEnvelope struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Register runs the full registration sequence for reg: tool and
// resources and prompts upsert with bounded parallelism (≤4), then
// the federated gateway (server.url present) or virtual server upserts
// strictly after all of those succeed (spec.md §4.F).
func (c *Client) Register(ctx context.Context, reg *manifest.MCPRegistration) (*Outcome, error) {
	if reg == nil {
		return &Outcome{}, nil
	}

	var (
		mu   sync.Mutex
		regs []install.LockGatewayReg
	)
	addReg := func(kind, name string, id any) {
		mu.Lock()
		regs = append(regs, install.LockGatewayReg{Kind: kind, Name: name, ID: id})
		mu.Unlock()
	}

	toolIDs := make(map[string]any)
	resourceIDs := make(map[string]any)
	promptIDs := make(map[string]any)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentUpserts)

	if len(reg.Tool) > 0 {
		group.Go(func() error {
			env, err := decodeSlug(reg.Tool)
			if err != nil {
				return err
			}
			rec, err := c.createOrResolve(gctx, "/tools", "/tools", reg.Tool, env.Name, "")
			if err != nil {
				return err
			}
			mu.Lock()
			toolIDs[env.Name] = rec.ID
			mu.Unlock()
			addReg("tool", env.Name, rec.ID)
			return nil
		})
	}
	for _, raw := range reg.Resources {
		raw := raw
		group.Go(func() error {
			env, err := decodeSlug(raw)
			if err != nil {
				return err
			}
			rec, err := c.createOrResolve(gctx, "/resources", "/resources", raw, env.Name, env.URI)
			if err != nil {
				return err
			}
			mu.Lock()
			resourceIDs[env.Name] = rec.ID
			mu.Unlock()
			addReg("resource", env.Name, rec.ID)
			return nil
		})
	}
	for _, raw := range reg.Prompts {
		raw := raw
		group.Go(func() error {
			env, err := decodeSlug(raw)
			if err != nil {
				return err
			}
			rec, err := c.createOrResolve(gctx, "/prompts", "/prompts", raw, env.Name, "")
			if err != nil {
				return err
			}
			mu.Lock()
			promptIDs[env.Name] = rec.ID
			mu.Unlock()
			addReg("prompt", env.Name, rec.ID)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return &Outcome{Registrations: regs}, err
	}

	if reg.Server == nil {
		return &Outcome{Registrations: regs}, nil
	}

	kind, path, body := c.buildServerBody(reg.Server, toolIDs, resourceIDs, promptIDs)
	rec, err := c.createOrResolve(ctx, path, path, body, reg.Server.Name, "")
	if err != nil {
		return &Outcome{Registrations: regs}, err
	}
	addReg(kind, reg.Server.Name, rec.ID)

	return &Outcome{Registrations: regs}, nil
}

func decodeSlug(raw json.RawMessage) (slugEnvelope, error) {
	var env slugEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return slugEnvelope{}, err
	}
	return env, nil
}

// buildServerBody renders reg.Server into the gateway's create body,
// substituting resolved numeric ids for the manifest's opaque slugs
// and applying the transient SSE URL normalization from spec.md §4.F.
// The normalization is never written back to the stored manifest.
func (c *Client) buildServerBody(server *manifest.ServerSpec, toolIDs, resourceIDs, promptIDs map[string]any) (kind, path string, body []byte) {
	url, dropTransport := normalizeServerURL(server)

	payload := map[string]any{
		"name": server.Name,
		"url":  url,
	}
	if !dropTransport && server.Transport != "" {
		payload["transport"] = server.Transport
	}
	if ids := resolveIDs(server.AssociatedTools, toolIDs); len(ids) > 0 {
		payload["tool_ids"] = ids
	}
	if ids := resolveIDs(server.AssociatedResources, resourceIDs); len(ids) > 0 {
		payload["resource_ids"] = ids
	}
	if ids := resolveIDs(server.AssociatedPrompts, promptIDs); len(ids) > 0 {
		payload["prompt_ids"] = ids
	}

	body, _ = json.Marshal(payload)
	if server.URL != "" {
		return "gateway", "/gateways", body
	}
	return "server", "/servers", body
}

func resolveIDs(slugs []string, known map[string]any) []any {
	ids := make([]any, 0, len(slugs))
	for _, s := range slugs {
		if id, ok := known[s]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// normalizeServerURL applies spec.md §4.F's SSE normalization: when
// the transport is sse and the URL lacks a /sse suffix, the suffix is
// appended and the explicit transport field is dropped so the gateway
// does not rewrite it server-side.
func normalizeServerURL(server *manifest.ServerSpec) (url string, dropTransport bool) {
	if !strings.EqualFold(server.Transport, "sse") {
		return server.URL, false
	}
	if strings.HasSuffix(server.URL, "/sse") {
		return server.URL, false
	}
	return strings.TrimRight(server.URL, "/") + "/sse", true
}
