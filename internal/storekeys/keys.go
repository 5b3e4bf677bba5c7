// Package storekeys builds and validates the workspace/project-scoped
// opaque storage keys used by the Content Store (spec §4.2).
//
// Format: <workspaceUid>/<projectUid>/<category?>/<opaqueId>[.<ext>]
// Keys never contain user-supplied path segments; file names are metadata,
// not keys (spec I1, L4).
package storekeys

import (
	"fmt"
	"strings"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
)

// Flavor selects one of the three key shapes named in spec §4.2.
type Flavor int

const (
	FlavorRaw Flavor = iota
	FlavorArtifact
	FlavorUpload
)

// Build composes a new opaque key for the given workspace/project.
//
//   FlavorRaw:      <ws>/<prj>/<opaqueId>[.ext]
//   FlavorArtifact: <ws>/<prj>/artifacts/<artifactType>/<opaqueId>[.ext]
//   FlavorUpload:   <ws>/<prj>/uploads/<sessionUid>/<opaqueId>[.ext]
func Build(flavor Flavor, workspaceID, projectID, typeOrSession, ext string) (string, error) {
	if workspaceID == "" || projectID == "" {
		return "", apperrors.NewValidation("storekeys: workspace and project ids are required")
	}
	opaque := idutil.OpaqueID()
	if ext != "" {
		opaque = opaque + "." + strings.TrimPrefix(ext, ".")
	}

	switch flavor {
	case FlavorRaw:
		return fmt.Sprintf("%s/%s/%s", workspaceID, projectID, opaque), nil
	case FlavorArtifact:
		if typeOrSession == "" {
			return "", apperrors.NewValidation("storekeys: artifact type is required")
		}
		return fmt.Sprintf("%s/%s/artifacts/%s/%s", workspaceID, projectID, typeOrSession, opaque), nil
	case FlavorUpload:
		if typeOrSession == "" {
			return "", apperrors.NewValidation("storekeys: session uid is required")
		}
		return fmt.Sprintf("%s/%s/uploads/%s/%s", workspaceID, projectID, typeOrSession, opaque), nil
	default:
		return "", apperrors.NewValidation("storekeys: unknown flavor")
	}
}

// ValidateWorkspace checks that key is scoped to workspaceID, comparing the
// prefix case-insensitively (spec §4.2).
func ValidateWorkspace(key, workspaceID string) bool {
	prefix := strings.ToLower(workspaceID) + "/"
	return strings.HasPrefix(strings.ToLower(key), prefix) && isSafe(key)
}

// ValidateProject checks that key is scoped to both workspaceID and
// projectID.
func ValidateProject(key, workspaceID, projectID string) bool {
	prefix := strings.ToLower(workspaceID) + "/" + strings.ToLower(projectID) + "/"
	return strings.HasPrefix(strings.ToLower(key), prefix) && isSafe(key)
}

// isSafe rejects keys that could escape a base directory: parent
// references, absolute paths, drive letters, or backslashes (spec L4).
func isSafe(key string) bool {
	if key == "" {
		return false
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, "\\") {
		return false
	}
	if strings.Contains(key, "\\") {
		return false
	}
	if len(key) >= 2 && key[1] == ':' {
		return false // drive letter, e.g. "C:"
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return true
}

// Validate reports whether key is a well-formed, traversal-safe key,
// independent of workspace/project scoping. Used by Content Store
// implementations before ever touching the filesystem (spec L4, scenario 6).
func Validate(key string) error {
	if !isSafe(key) {
		return apperrors.NewValidation("storekeys: key %q is not a safe, workspace-scoped key", key)
	}
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return apperrors.NewValidation("storekeys: key %q must start with <workspaceUid>/<projectUid>/...", key)
	}
	return nil
}
