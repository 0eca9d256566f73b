package install

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

// safeJoin joins target with sub, refusing any result that would
// escape target (spec.md §4.E safety invariant). sub must not contain
// ".." components or be absolute.
func safeJoin(target, sub string) (string, error) {
	if filepath.IsAbs(sub) {
		return "", apperrors.NewForbiddenError("artifact destination must not be absolute: "+sub, nil)
	}
	cleanTarget := filepath.Clean(target)
	joined := filepath.Join(cleanTarget, sub)
	if joined != cleanTarget && !strings.HasPrefix(joined, cleanTarget+string(filepath.Separator)) {
		return "", apperrors.NewForbiddenError("artifact destination escapes target: "+sub, nil)
	}
	return joined, nil
}

// safeZipEntryName rejects zip entry names that would escape the
// extraction directory (absolute paths or ".." components).
func safeZipEntryName(name string) error {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return apperrors.NewForbiddenError("zip entry has absolute path: "+name, nil)
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return apperrors.NewForbiddenError("zip entry escapes target: "+name, nil)
		}
	}
	return nil
}

// validHTTPURL enforces the http/https-only fetch invariant.
func validHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return apperrors.NewInvalidRequestError("invalid URL: "+raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.NewInvalidRequestError("only http/https URLs are permitted: "+raw, nil)
	}
	return nil
}
