// Package install derives and executes install plans for a manifest
// against a target directory (component E): artifact steps
// (pypi/docker/git/zip), adapter scaffolding, and mcp_registration
// passthrough to the gateway client, finishing with a matrix.lock.json
// lockfile.
package install

import "github.com/agent-matrix/matrix-hub/internal/manifest"

// Artifact kinds recognized by the planner (spec.md §4.E).
const (
	KindPyPI   = "pypi"
	KindDocker = "docker"
	KindGit    = "git"
	KindZip    = "zip"
)

// ArtifactStep is one normalized, kind-specific entry of a Plan's
// artifacts. Only the fields relevant to Kind are populated.
type ArtifactStep struct {
	Kind  string `json:"kind"`
	Fatal bool   `json:"fatal"`

	// pypi
	Package     string `json:"package,omitempty"`
	PinVersion  string `json:"version,omitempty"`
	IndexURL    string `json:"index_url,omitempty"`

	// docker
	Image string `json:"image,omitempty"`

	// git
	RepoURL string `json:"repo_url,omitempty"`
	GitRef  string `json:"ref,omitempty"`

	// zip
	SourceURL string `json:"source_url,omitempty"`
	SHA256    string `json:"sha256,omitempty"`

	// git/zip: subpath under target the step materializes into.
	Destination string `json:"destination,omitempty"`
}

// Ref is a canonical identifier for the thing this step applies,
// used both for the lockfile's artifacts_applied[].ref and for
// idempotency comparison against a prior install at the same target.
func (a ArtifactStep) Ref() string {
	switch a.Kind {
	case KindPyPI:
		return a.Package + "==" + a.PinVersion
	case KindDocker:
		return a.Image
	case KindGit:
		return a.RepoURL + "@" + a.GitRef
	case KindZip:
		return a.SourceURL + "#" + a.SHA256
	default:
		return ""
	}
}

// AdapterStep is one entry of a Plan's adapters, resolved to a
// concrete destination path under target/src/.
type AdapterStep struct {
	Framework   string `json:"framework"`
	TemplateKey string `json:"template_key"`
	DestPath    string `json:"dest_path"`
}

// Plan is the pure output of DerivePlan: a deterministic function of
// the manifest and the target directory, with no side effects.
type Plan struct {
	UID             string
	Target          string
	Artifacts       []ArtifactStep
	Adapters        []AdapterStep
	MCPRegistration *manifest.MCPRegistration
}

// StepResult is the outcome of executing one plan step.
type StepResult struct {
	Step          string         `json:"step"`
	OK            bool           `json:"ok"`
	ReturnCode    *int           `json:"returncode,omitempty"`
	ElapsedSecs   float64        `json:"elapsed_secs"`
	StdoutExcerpt string         `json:"stdout_excerpt,omitempty"`
	StderrExcerpt string         `json:"stderr_excerpt,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// InstallResult is the full response to an install request.
type InstallResult struct {
	Plan         *Plan        `json:"plan"`
	Results      []StepResult `json:"results"`
	FilesWritten []string     `json:"files_written"`
	Lockfile     *Lockfile    `json:"lockfile"`
}
