package install

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_PyPIAndDockerStepsNeverMutateFilesystem(t *testing.T) {
	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Artifacts: []ArtifactStep{
			{Kind: KindPyPI, Fatal: true, Package: "widget", PinVersion: "1.0.0"},
			{Kind: KindDocker, Fatal: true, Image: "ghcr.io/example/widget:1.0.0"},
		},
	}

	exec := NewExecutor()
	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].OK)
	assert.True(t, result.Results[1].OK)
	assert.Empty(t, result.FilesWritten)
}

func TestExecute_DockerStepFatalFailureAbortsLaterSteps(t *testing.T) {
	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Artifacts: []ArtifactStep{
			{Kind: KindDocker, Fatal: true, Image: "INVALID::::REF"},
		},
		Adapters: []AdapterStep{
			{Framework: "langchain", TemplateKey: "langchain_tool", DestPath: "src/langchain/langchain_tool"},
		},
	}

	exec := NewExecutor()
	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Results, 1, "the adapter step must not run after a fatal artifact failure")
	assert.False(t, result.Results[0].OK)
}

func TestExecute_GitStepClonesLocalRepository(t *testing.T) {
	sourceDir := t.TempDir()
	repo, err := git.PlainInit(sourceDir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "README.md"), []byte("hello"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com"},
	})
	require.NoError(t, err)

	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Artifacts: []ArtifactStep{
			{Kind: KindGit, Fatal: false, RepoURL: sourceDir, Destination: "src/widget"},
		},
	}

	exec := NewExecutor()
	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].OK)
	content, err := os.ReadFile(filepath.Join(target, "src/widget/README.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestExecute_ZipStepVerifiesHashAndExtracts(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("widget/main.py")
	require.NoError(t, err)
	_, err = w.Write([]byte("print('hi')"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	sum := sha256.Sum256(buf.Bytes())
	hexSum := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Artifacts: []ArtifactStep{
			{Kind: KindZip, Fatal: false, SourceURL: srv.URL, SHA256: hexSum, Destination: "vendor/widget"},
		},
	}

	exec := NewExecutor()
	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].OK)
	content, err := os.ReadFile(filepath.Join(target, "vendor/widget/widget/main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(content))
}

func TestExecute_ZipStepRejectsSHA256Mismatch(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("x.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Artifacts: []ArtifactStep{
			{Kind: KindZip, Fatal: false, SourceURL: srv.URL, SHA256: "deadbeef", Destination: "vendor/widget"},
		},
	}

	exec := NewExecutor()
	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].OK)
}

func TestExecute_PathEscapeIsForbidden(t *testing.T) {
	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Artifacts: []ArtifactStep{
			{Kind: KindGit, Fatal: false, RepoURL: "https://example.com/x.git", Destination: "../escape"},
		},
	}

	exec := NewExecutor()
	_, err := exec.Execute(context.Background(), plan)
	assert.Error(t, err)
}

func TestExecute_AdapterWriteIsSkippedOnSecondIdenticalRun(t *testing.T) {
	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Adapters: []AdapterStep{
			{Framework: "langchain", TemplateKey: "langchain_tool", DestPath: "src/langchain/langchain_tool"},
		},
	}

	exec := NewExecutor()
	first, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	assert.True(t, first.Results[0].OK)
	assert.Equal(t, []string{"src/langchain/langchain_tool"}, first.FilesWritten)

	second, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.True(t, second.Results[0].OK)
	skipped, _ := second.Results[0].Extra["skipped"].(bool)
	assert.True(t, skipped, "re-running an unchanged adapter step must be a no-op")
	assert.Empty(t, second.FilesWritten, "a skipped adapter must not be reported as written")
}

func TestExecute_ArtifactStepIsSkippedOnSecondIdenticalRun(t *testing.T) {
	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Artifacts: []ArtifactStep{
			{Kind: KindPyPI, Fatal: true, Package: "widget", PinVersion: "1.0.0"},
		},
	}

	exec := NewExecutor()
	_, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)

	second, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	skipped, _ := second.Results[0].Extra["skipped"].(bool)
	assert.True(t, skipped)
}

func TestExecute_WritesLockfileMatchingSpecShape(t *testing.T) {
	target := t.TempDir()
	plan := &Plan{
		UID:    "tool:widget@1.0.0",
		Target: target,
		Artifacts: []ArtifactStep{
			{Kind: KindPyPI, Fatal: true, Package: "widget", PinVersion: "1.0.0"},
		},
		Adapters: []AdapterStep{
			{Framework: "langchain", TemplateKey: "langchain_tool", DestPath: "src/langchain/langchain_tool"},
		},
	}

	exec := NewExecutor()
	result, err := exec.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 1, result.Lockfile.Version)
	require.Len(t, result.Lockfile.Entities, 1)
	entity := result.Lockfile.Entities[0]
	assert.Equal(t, "tool:widget@1.0.0", entity.ID)
	require.Len(t, entity.ArtifactsApplied, 1)
	assert.Equal(t, "pypi", entity.ArtifactsApplied[0].Kind)
	require.Len(t, entity.AdaptersWritten, 1)

	_, err = os.Stat(filepath.Join(target, "matrix.lock.json"))
	require.NoError(t, err)
}
