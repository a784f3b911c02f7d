package integrations

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CollisionPolicy decides what happens when an output path already exists.
type CollisionPolicy string

const (
	// PolicySuffix appends (1), (2), ... before the extension.
	PolicySuffix CollisionPolicy = "suffix"
	// PolicyOverwrite reuses the existing path.
	PolicyOverwrite CollisionPolicy = "overwrite"
)

func ParsePolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(strings.ToLower(s)) {
	case PolicySuffix, "":
		return PolicySuffix, nil
	case PolicyOverwrite:
		return PolicyOverwrite, nil
	default:
		return "", fmt.Errorf("unknown collision policy: %s", s)
	}
}

// UniquePath returns a path that does not exist yet under the suffix policy,
// and path itself under the overwrite policy. renamed reports whether the
// returned path differs from the input.
func UniquePath(path string, policy CollisionPolicy) (unique string, renamed bool) {
	if policy == PolicyOverwrite || !exists(path) {
		return path, false
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s(%d)%s", base, counter, ext)
		if !exists(candidate) {
			return candidate, true
		}
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// SanitizeFilename removes characters that are invalid in filenames
func SanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	// Trim spaces and dots from ends
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}
