package manifest

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var idPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9._-]*[a-z0-9])?$`)

var (
	compileOnce sync.Once
	schemas     map[string]*gojsonschema.Schema
	compileErr  error
)

func loadSchemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		schemas = make(map[string]*gojsonschema.Schema, 4)
		for name, file := range map[string]string{
			"base":       "schemas/base.json",
			"agent":      "schemas/agent.json",
			"tool":       "schemas/tool.json",
			"mcp_server": "schemas/mcp_server.json",
		} {
			data, err := schemaFS.ReadFile(file)
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			schemas[name] = schema
		}
	})
	return schemas, compileErr
}

// ValidationError aggregates every offending JSON Pointer-ish path
// into a single structured error, per spec.md §4.B.
type ValidationError struct {
	Paths []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed: %v", e.Paths)
}

// Validate parses and validates a manifest document against the
// schema matching its declared type, plus the structural checks
// spec.md §4.B lists informally (id pattern, absolute URLs, set
// dedup). Unknown top-level keys are preserved in Raw but ignored for
// validation. Validate is pure: it performs no I/O and has no side
// effects.
func Validate(raw []byte) (*Manifest, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, apperrors.NewIntegrityError("load manifest schemas", err)
	}

	docLoader := gojsonschema.NewBytesLoader(raw)
	baseResult, err := schemas["base"].Validate(docLoader)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError("manifest is not valid JSON", err)
	}
	if !baseResult.Valid() {
		return nil, apperrors.NewInvalidRequestError("manifest missing required fields", &ValidationError{Paths: resultPaths(baseResult)})
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.NewInvalidRequestError("manifest is not valid JSON", err)
	}
	m.Raw = append(json.RawMessage(nil), raw...)

	typeSchema, ok := schemas[m.Type]
	if !ok {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("unknown manifest type %q", m.Type), nil)
	}
	typeResult, err := typeSchema.Validate(docLoader)
	if err != nil {
		return nil, apperrors.NewInvalidRequestError("manifest is not valid JSON", err)
	}
	if !typeResult.Valid() {
		return nil, apperrors.NewInvalidRequestError("manifest fails type-specific schema", &ValidationError{Paths: resultPaths(typeResult)})
	}

	var paths []string
	if !idPattern.MatchString(m.ID) {
		paths = append(paths, "id")
	}
	if m.Version == "" {
		paths = append(paths, "version")
	}
	for _, u := range collectURLs(&m) {
		if !isAbsoluteURL(u) {
			paths = append(paths, "url:"+u)
		}
	}
	if len(paths) > 0 {
		return nil, apperrors.NewInvalidRequestError("manifest fails structural checks", &ValidationError{Paths: paths})
	}

	m.Capabilities = dedupe(m.Capabilities)
	m.Frameworks = dedupe(m.Frameworks)
	m.Providers = dedupe(m.Providers)

	switch m.Type {
	case "tool":
		if m.Implementation == nil && len(m.Artifacts) == 0 {
			return nil, apperrors.NewInvalidRequestError("tool manifest must carry implementation or artifacts", nil)
		}
	case "mcp_server":
		if m.MCPRegistration == nil || (m.MCPRegistration.Tool == nil && m.MCPRegistration.Server == nil) {
			return nil, apperrors.NewInvalidRequestError("mcp_server manifest must carry a tool or server registration", nil)
		}
	}

	return &m, nil
}

func resultPaths(result *gojsonschema.Result) []string {
	paths := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		paths = append(paths, e.Field())
	}
	return paths
}

func collectURLs(m *Manifest) []string {
	var urls []string
	if m.Homepage != "" {
		urls = append(urls, m.Homepage)
	}
	if m.MCPRegistration != nil && m.MCPRegistration.Server != nil && m.MCPRegistration.Server.URL != "" {
		urls = append(urls, m.MCPRegistration.Server.URL)
	}
	return urls
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
