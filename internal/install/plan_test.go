package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-matrix/matrix-hub/internal/manifest"
)

func mustValidate(t *testing.T, raw string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Validate([]byte(raw))
	require.NoError(t, err)
	return m
}

func TestDerivePlan_AllArtifactKinds(t *testing.T) {
	m := mustValidate(t, `{
		"schema_version": "1.0",
		"type": "tool",
		"id": "multi-artifact",
		"version": "1.0.0",
		"name": "Multi Artifact Tool",
		"artifacts": [
			{"kind": "pypi", "package": "widget", "version": "2.0.0"},
			{"kind": "docker", "image": "ghcr.io/example/widget:2.0.0"},
			{"kind": "git", "repo_url": "https://example.com/widget.git", "ref": "main", "destination": "src/widget"},
			{"kind": "zip", "url": "https://example.com/widget.zip", "sha256": "abc123", "destination": "vendor/widget"}
		],
		"adapters": [{"framework": "langchain", "template_key": "langchain_tool"}]
	}`)

	plan, err := DerivePlan(m, "/tmp/target")
	require.NoError(t, err)
	assert.Equal(t, "tool:multi-artifact@1.0.0", plan.UID)
	require.Len(t, plan.Artifacts, 4)

	assert.Equal(t, KindPyPI, plan.Artifacts[0].Kind)
	assert.True(t, plan.Artifacts[0].Fatal)
	assert.Equal(t, "widget==2.0.0", plan.Artifacts[0].Ref())

	assert.Equal(t, KindDocker, plan.Artifacts[1].Kind)
	assert.True(t, plan.Artifacts[1].Fatal)

	assert.Equal(t, KindGit, plan.Artifacts[2].Kind)
	assert.False(t, plan.Artifacts[2].Fatal, "git defaults to non-fatal per spec.md §4.E")
	assert.Equal(t, "src/widget", plan.Artifacts[2].Destination)

	assert.Equal(t, KindZip, plan.Artifacts[3].Kind)
	assert.False(t, plan.Artifacts[3].Fatal, "zip defaults to non-fatal per spec.md §4.E")

	require.Len(t, plan.Adapters, 1)
	assert.Equal(t, "src/langchain/langchain_tool", plan.Adapters[0].DestPath)
}

func TestDerivePlan_RejectsUnknownArtifactKind(t *testing.T) {
	m := mustValidate(t, `{
		"schema_version": "1.0",
		"type": "tool",
		"id": "bad-artifact",
		"version": "1.0.0",
		"name": "Bad Artifact Tool",
		"implementation": {"runtime": "python3.11", "entrypoint": "x:main"},
		"artifacts": [{"kind": "npm", "package": "widget"}]
	}`)

	_, err := DerivePlan(m, "/tmp/target")
	assert.Error(t, err)
}

func TestDerivePlan_IsPureFunctionOfInputs(t *testing.T) {
	m := mustValidate(t, `{
		"schema_version": "1.0",
		"type": "tool",
		"id": "stable-tool",
		"version": "1.0.0",
		"name": "Stable Tool",
		"implementation": {"runtime": "python3.11", "entrypoint": "x:main"},
		"artifacts": [{"kind": "pypi", "package": "widget", "version": "1.0.0"}]
	}`)

	first, err := DerivePlan(m, "/tmp/target")
	require.NoError(t, err)
	second, err := DerivePlan(m, "/tmp/target")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
