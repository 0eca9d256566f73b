package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

func TestValidate_ValidMCPServerManifest(t *testing.T) {
	raw := []byte(`{
		"schema_version": "1.0",
		"type": "mcp_server",
		"id": "hello",
		"version": "0.1.0",
		"name": "Hello SSE",
		"capabilities": ["chat", "chat"],
		"mcp_registration": {
			"server": {"name": "hello", "url": "https://example.com/sse", "transport": "sse"}
		}
	}`)

	m, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "mcp_server", m.Type)
	assert.Equal(t, "hello", m.ID)
	assert.Equal(t, []string{"chat"}, m.Capabilities, "duplicate capability entries must be deduplicated")
	assert.NotNil(t, m.Raw)
}

func TestValidate_ValidToolManifest(t *testing.T) {
	raw := []byte(`{
		"schema_version": "1.0",
		"type": "tool",
		"id": "pdf-extract",
		"version": "1.0.0",
		"name": "PDF Extract",
		"implementation": {"runtime": "python3.11", "entrypoint": "pdf_extract:main"}
	}`)

	m, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "tool", m.Type)
	require.NotNil(t, m.Implementation)
	assert.Equal(t, "python3.11", m.Implementation.Runtime)
}

func TestValidate_ValidAgentManifest(t *testing.T) {
	raw := []byte(`{
		"schema_version": "1.0",
		"type": "agent",
		"id": "research-agent",
		"version": "2.0.0",
		"name": "Research Agent",
		"adapters": [{"framework": "langchain", "template_key": "default"}]
	}`)

	m, err := Validate(raw)
	require.NoError(t, err)
	assert.Len(t, m.Adapters, 1)
	assert.Equal(t, "langchain", m.Adapters[0].Framework)
}

func TestValidate_MissingRequiredBaseFields(t *testing.T) {
	raw := []byte(`{"type": "tool", "id": "x", "version": "1.0.0"}`)

	_, err := Validate(raw)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestValidate_InvalidIDPattern(t *testing.T) {
	raw := []byte(`{
		"schema_version": "1.0",
		"type": "tool",
		"id": "-bad-id",
		"version": "1.0.0",
		"name": "Bad",
		"implementation": {"runtime": "python3.11", "entrypoint": "m:main"}
	}`)

	_, err := Validate(raw)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestValidate_RelativeServerURLRejected(t *testing.T) {
	raw := []byte(`{
		"schema_version": "1.0",
		"type": "mcp_server",
		"id": "hello",
		"version": "0.1.0",
		"name": "Hello SSE",
		"mcp_registration": {
			"server": {"name": "hello", "url": "/sse"}
		}
	}`)

	_, err := Validate(raw)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestValidate_ToolRequiresImplementationOrArtifacts(t *testing.T) {
	raw := []byte(`{
		"schema_version": "1.0",
		"type": "tool",
		"id": "bare-tool",
		"version": "1.0.0",
		"name": "Bare Tool"
	}`)

	_, err := Validate(raw)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidRequest(err))
}

func TestValidate_UnknownTopLevelKeysPreservedInRaw(t *testing.T) {
	raw := []byte(`{
		"schema_version": "1.0",
		"type": "tool",
		"id": "pdf-extract",
		"version": "1.0.0",
		"name": "PDF Extract",
		"implementation": {"runtime": "python3.11", "entrypoint": "pdf_extract:main"},
		"x_vendor_extension": {"anything": true}
	}`)

	m, err := Validate(raw)
	require.NoError(t, err)
	assert.Contains(t, string(m.Raw), "x_vendor_extension")
}

func TestValidate_UnknownManifestTypeRejected(t *testing.T) {
	raw := []byte(`{
		"schema_version": "1.0",
		"type": "widget",
		"id": "x",
		"version": "1.0.0",
		"name": "X"
	}`)

	_, err := Validate(raw)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidRequest(err))
}
