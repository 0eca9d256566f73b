// Package manifest validates agent/tool/mcp_server manifest documents
// against the schema matching their declared type (spec.md §4.B). The
// validator is pure and side-effect free.
package manifest

import "encoding/json"

// Artifact is one entry of a manifest's artifacts[] array. Raw
// carries the full entry (kind plus kind-specific payload fields) for
// the install planner to decode per kind.
type Artifact struct {
	Kind string          `json:"kind"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the entry's Kind field while keeping the
// verbatim bytes in Raw, since artifact payloads vary by kind.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var alias struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	a.Kind = alias.Kind
	a.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Adapter is one entry of a manifest's adapters[] array.
type Adapter struct {
	Framework   string `json:"framework"`
	TemplateKey string `json:"template_key"`
}

// ServerSpec is mcp_registration.server.
type ServerSpec struct {
	Name                 string   `json:"name"`
	URL                  string   `json:"url"`
	Transport            string   `json:"transport,omitempty"`
	AssociatedTools      []string `json:"associated_tools,omitempty"`
	AssociatedResources  []string `json:"associated_resources,omitempty"`
	AssociatedPrompts    []string `json:"associated_prompts,omitempty"`
}

// MCPRegistration is the mcp_registration block shared by agent,
// tool, and mcp_server manifests.
type MCPRegistration struct {
	Tool      json.RawMessage   `json:"tool,omitempty"`
	Resources []json.RawMessage `json:"resources,omitempty"`
	Prompts   []json.RawMessage `json:"prompts,omitempty"`
	Server    *ServerSpec       `json:"server,omitempty"`
}

// Implementation is a tool's implementation block.
type Implementation struct {
	Runtime    string `json:"runtime"`
	Entrypoint string `json:"entrypoint"`
}

// Manifest is the normalized, parsed representation of a manifest
// document, common fields plus the raw document for verbatim storage.
type Manifest struct {
	SchemaVersion string `json:"schema_version"`
	Type          string `json:"type"`
	ID            string `json:"id"`
	Version       string `json:"version"`
	Name          string `json:"name"`

	Summary     string `json:"summary"`
	Description string `json:"description"`
	Homepage    string `json:"homepage"`
	Publisher   string `json:"publisher"`
	License     string `json:"license"`

	Capabilities []string `json:"capabilities"`
	Frameworks   []string `json:"frameworks"`
	Providers    []string `json:"providers"`

	QualityScore *float64 `json:"quality_score,omitempty"`

	Artifacts       []Artifact       `json:"artifacts,omitempty"`
	Adapters        []Adapter        `json:"adapters,omitempty"`
	Implementation  *Implementation  `json:"implementation,omitempty"`
	MCPRegistration *MCPRegistration `json:"mcp_registration,omitempty"`

	Raw json.RawMessage `json:"-"`
}
