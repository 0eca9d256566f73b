package install

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
	"github.com/agent-matrix/matrix-hub/internal/catalog"
	"github.com/agent-matrix/matrix-hub/internal/manifest"
)

// pypiArtifact/dockerArtifact/gitArtifact/zipArtifact are the
// kind-specific payload shapes DerivePlan decodes an Artifact.Raw
// into. Field names mirror what a manifest author would write.
type pypiArtifact struct {
	Package  string `json:"package"`
	Version  string `json:"version"`
	IndexURL string `json:"index_url"`
}

type dockerArtifact struct {
	Image string `json:"image"`
}

type gitArtifact struct {
	RepoURL     string `json:"repo_url"`
	Ref         string `json:"ref"`
	Destination string `json:"destination"`
}

type zipArtifact struct {
	URL         string `json:"url"`
	SHA256      string `json:"sha256"`
	Destination string `json:"destination"`
}

// DerivePlan is a pure function of m and target: identical inputs
// always produce an identical Plan, which is what makes the
// idempotency invariant in spec.md §4.E possible.
func DerivePlan(m *manifest.Manifest, target string) (*Plan, error) {
	uid := catalog.UID(catalog.EntityType(m.Type), m.ID, m.Version)

	artifacts := make([]ArtifactStep, 0, len(m.Artifacts))
	for i, a := range m.Artifacts {
		step, err := planArtifact(a)
		if err != nil {
			return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("artifacts[%d]: %v", i, err), err)
		}
		artifacts = append(artifacts, step)
	}

	adapters := make([]AdapterStep, 0, len(m.Adapters))
	for _, a := range m.Adapters {
		adapters = append(adapters, AdapterStep{
			Framework:   a.Framework,
			TemplateKey: a.TemplateKey,
			DestPath:    filepath.Join("src", a.Framework, a.TemplateKey),
		})
	}

	if m.MCPRegistration != nil {
		if len(m.MCPRegistration.Tool) == 0 && m.MCPRegistration.Server == nil {
			return nil, apperrors.NewInvalidRequestError("mcp_registration must carry a tool or server", nil)
		}
	}

	return &Plan{
		UID:             uid,
		Target:          target,
		Artifacts:       artifacts,
		Adapters:        adapters,
		MCPRegistration: m.MCPRegistration,
	}, nil
}

func planArtifact(a manifest.Artifact) (ArtifactStep, error) {
	switch a.Kind {
	case KindPyPI:
		var p pypiArtifact
		if err := json.Unmarshal(a.Raw, &p); err != nil {
			return ArtifactStep{}, err
		}
		if p.Package == "" || p.Version == "" {
			return ArtifactStep{}, fmt.Errorf("pypi artifact requires package and version")
		}
		return ArtifactStep{
			Kind: KindPyPI, Fatal: true,
			Package: p.Package, PinVersion: p.Version, IndexURL: p.IndexURL,
		}, nil

	case KindDocker:
		var d dockerArtifact
		if err := json.Unmarshal(a.Raw, &d); err != nil {
			return ArtifactStep{}, err
		}
		if d.Image == "" {
			return ArtifactStep{}, fmt.Errorf("docker artifact requires image")
		}
		return ArtifactStep{Kind: KindDocker, Fatal: true, Image: d.Image}, nil

	case KindGit:
		var g gitArtifact
		if err := json.Unmarshal(a.Raw, &g); err != nil {
			return ArtifactStep{}, err
		}
		if g.RepoURL == "" {
			return ArtifactStep{}, fmt.Errorf("git artifact requires repo_url")
		}
		dest := g.Destination
		if dest == "" {
			dest = "src"
		}
		return ArtifactStep{
			Kind: KindGit, Fatal: false,
			RepoURL: g.RepoURL, GitRef: g.Ref, Destination: dest,
		}, nil

	case KindZip:
		var z zipArtifact
		if err := json.Unmarshal(a.Raw, &z); err != nil {
			return ArtifactStep{}, err
		}
		if z.URL == "" {
			return ArtifactStep{}, fmt.Errorf("zip artifact requires url")
		}
		dest := z.Destination
		if dest == "" {
			dest = "src"
		}
		return ArtifactStep{
			Kind: KindZip, Fatal: false,
			SourceURL: z.URL, SHA256: z.SHA256, Destination: dest,
		}, nil

	default:
		return ArtifactStep{}, fmt.Errorf("unknown artifact kind %q", a.Kind)
	}
}
