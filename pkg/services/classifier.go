package services

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/kerbaras/skypack/pkg/data"
)

// ExcludedFiles are never treated as item textures.
var ExcludedFiles = []string{"pack.png", "pack.mcmeta"}

// BucketRoots are the output directories of the two layouts.
type BucketRoots struct {
	CIT string
	CTM string
}

// NewBucketRoots returns the MCPatcher roots below a pack base folder.
func NewBucketRoots(baseDir string) BucketRoots {
	mcpatcher := filepath.Join(baseDir, "assets", "minecraft", "mcpatcher")
	return BucketRoots{
		CIT: filepath.Join(mcpatcher, "cit"),
		CTM: filepath.Join(mcpatcher, "ctm"),
	}
}

func (r BucketRoots) Root(b data.Bucket) string {
	if b == data.BucketCTM {
		return r.CTM
	}
	return r.CIT
}

// IsCandidate reports whether fileName is a texture the pipeline should place.
func IsCandidate(fileName string, excluded []string) bool {
	lower := strings.ToLower(fileName)
	if !strings.HasSuffix(lower, ".png") {
		return false
	}
	return !slices.ContainsFunc(excluded, func(name string) bool {
		return strings.EqualFold(name, lower)
	})
}

// DetectZone matches zone names as plain substrings of the relative path, so
// "not_dwarven_mines_stuff" also counts as the dwarven mines.
func DetectZone(relativeSourceDir string) data.Zone {
	for _, zone := range data.Zones {
		if strings.Contains(relativeSourceDir, string(zone)) {
			return zone
		}
	}
	return data.ZoneNone
}

// ItemKey lowercases the file name and strips the .png suffix.
func ItemKey(fileName string) string {
	return strings.TrimSuffix(strings.ToLower(fileName), ".png")
}

// Classify decides where an image goes. It touches nothing on disk.
func Classify(relativeSourceDir, fileName string, roots BucketRoots) data.DestinationSlot {
	zone := DetectZone(relativeSourceDir)
	bucket := data.BucketCIT
	if zone != data.ZoneNone {
		bucket = data.BucketCTM
	}

	key := ItemKey(fileName)
	return data.DestinationSlot{
		Bucket:          bucket,
		Zone:            zone,
		ItemKey:         key,
		DestinationDir:  filepath.Join(roots.Root(bucket), relativeSourceDir, key),
		TextureFileName: strings.ToLower(fileName),
	}
}
