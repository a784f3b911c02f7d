package data

import (
	"strings"
	"time"
)

// Bucket is the MCPatcher layout an image is placed under.
type Bucket int

const (
	BucketCIT Bucket = iota
	BucketCTM
)

func (b Bucket) String() string {
	if b == BucketCTM {
		return "ctm"
	}
	return "cit"
}

// Zone is an in-game area that owns a local properties override folder.
type Zone string

const (
	ZoneNone           Zone = ""
	ZoneDwarvenMines   Zone = "dwarven_mines"
	ZoneCrystalHollows Zone = "crystal_hollows"
)

// Zones lists the known zones in detection order.
var Zones = []Zone{ZoneDwarvenMines, ZoneCrystalHollows}

// OverrideFolder is the folder name holding the zone's properties files.
func (z Zone) OverrideFolder() string {
	if z == ZoneNone {
		return ""
	}
	return string(z) + "_properties"
}

// DiscoveredImage is a texture found while walking the source tree.
type DiscoveredImage struct {
	FileName          string
	RelativeSourceDir string
	SourcePath        string
}

// DestinationSlot is where a discovered image ends up in the pack.
type DestinationSlot struct {
	Bucket          Bucket
	Zone            Zone
	ItemKey         string
	DestinationDir  string
	TextureFileName string
}

// PropertiesFileName is the metadata file name written beside the texture.
func (s DestinationSlot) PropertiesFileName() string {
	return s.ItemKey + ".properties"
}

// MetadataDescriptor is the decoded remote item description.
type MetadataDescriptor struct {
	ItemID          string
	TextureFileName string
	ItemKey         string
}

// Properties renders the descriptor in the CIT key=value format.
func (m MetadataDescriptor) Properties() string {
	var b strings.Builder
	b.WriteString("type=item\n")
	if m.ItemID != "" {
		b.WriteString("items=" + m.ItemID + "\n")
	}
	b.WriteString("texture=" + m.TextureFileName + "\n")
	b.WriteString("nbt.ExtraAttributes.id=" + m.ItemKey + "\n")
	return b.String()
}

type ResolutionKind int

const (
	ResolvedDescriptor ResolutionKind = iota
	ResolvedCopyVerbatim
	ResolvedFailure
)

// Resolution is the outcome of a metadata lookup for one slot.
type Resolution struct {
	Kind         ResolutionKind
	Descriptor   MetadataDescriptor
	OverridePath string
	Key          string // remote key, empty for overrides
	Err          error
}

// Item outcome statuses
const (
	StatusOverride  = "override"
	StatusGenerated = "generated"
	StatusFailed    = "failed"
)

type ItemOutcome struct {
	ItemKey        string
	Bucket         Bucket
	Zone           Zone
	DestinationDir string
	Status         string
	Detail         string
}

// ManifestEntry tracks one top-level pack asset.
type ManifestEntry struct {
	Name     string
	Required bool
	Expected bool // staged into the base folder
	Present  bool // verified after the run
}

type OutputManifest struct {
	Entries []ManifestEntry
}

// NewOutputManifest returns the manifest for pack.png, pack.mcmeta and credits.txt.
func NewOutputManifest() *OutputManifest {
	return &OutputManifest{Entries: []ManifestEntry{
		{Name: "pack.png", Required: true},
		{Name: "pack.mcmeta"},
		{Name: "credits.txt"},
	}}
}

func (m *OutputManifest) Entry(name string) *ManifestEntry {
	for i := range m.Entries {
		if m.Entries[i].Name == name {
			return &m.Entries[i]
		}
	}
	return nil
}

// Verified reports whether every expected entry is present.
func (m *OutputManifest) Verified() bool {
	for _, e := range m.Entries {
		if e.Expected && !e.Present {
			return false
		}
	}
	return true
}

type Event struct {
	Level   string
	Message string
}

// RunReport is everything a single pipeline run decided.
type RunReport struct {
	ID          string
	Name        string
	SourceDir   string
	BaseDir     string
	ArchivePath string
	LogPath     string
	State       string
	Success     bool
	Items       []ItemOutcome
	Manifest    *OutputManifest
	Events      []Event
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Failures counts items that ended without metadata.
func (r *RunReport) Failures() int {
	n := 0
	for _, item := range r.Items {
		if item.Status == StatusFailed {
			n++
		}
	}
	return n
}
