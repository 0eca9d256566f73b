package install

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

const lockfileVersion = 1
const lockfileName = "matrix.lock.json"

// Lockfile is the exact shape of matrix.lock.json (spec.md §6).
type Lockfile struct {
	Version  int           `json:"version"`
	Entities []LockEntity  `json:"entities"`
}

// LockEntity captures everything applied for one installed UID.
type LockEntity struct {
	ID                   string               `json:"id"`
	ArtifactsApplied     []LockArtifact       `json:"artifacts_applied"`
	AdaptersWritten      []string             `json:"adapters_written"`
	GatewayRegistrations []LockGatewayReg     `json:"gateway_registrations"`
}

// LockArtifact records one applied artifact step.
type LockArtifact struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
}

// LockGatewayReg records one gateway registration outcome.
type LockGatewayReg struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	ID   any    `json:"id"`
}

func lockfilePath(target string) string {
	return filepath.Join(target, lockfileName)
}

// readLockfile loads the existing lockfile at target, if any. A
// missing or unreadable lockfile is not an error: the install is
// simply treated as the first one for this target.
func readLockfile(target string) *Lockfile {
	data, err := os.ReadFile(lockfilePath(target))
	if err != nil {
		return nil
	}
	var lf Lockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil
	}
	return &lf
}

// writeLockfile persists lf at target/matrix.lock.json, overwriting
// any previous one. The lockfile reflects whatever progress was made
// even when some steps failed (spec.md §7 propagation note).
func writeLockfile(target string, lf *Lockfile) error {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return apperrors.NewIntegrityError("marshal lockfile", err)
	}
	if err := os.WriteFile(lockfilePath(target), data, 0o644); err != nil {
		return apperrors.NewIntegrityError("write lockfile", err)
	}
	return nil
}

// appliedArtifactRefs indexes a prior lockfile's applied artifacts by
// uid, so the executor can skip re-applying an unchanged step.
func appliedArtifactRefs(lf *Lockfile, uid string) map[string]struct{} {
	refs := make(map[string]struct{})
	if lf == nil {
		return refs
	}
	for _, e := range lf.Entities {
		if e.ID != uid {
			continue
		}
		for _, a := range e.ArtifactsApplied {
			refs[a.Kind+":"+a.Ref] = struct{}{}
		}
	}
	return refs
}
