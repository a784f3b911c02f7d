package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kerbaras/skypack/pkg/config"
	"github.com/kerbaras/skypack/pkg/data"
	"github.com/kerbaras/skypack/pkg/integrations"
)

// State is a pipeline phase. A run moves through them in declaration order
// or stops at StateAborted.
type State string

const (
	StateInit             State = "init"
	StateSourceValidated  State = "source_validated"
	StateAssetsStaged     State = "assets_staged"
	StateImagesClassified State = "images_classified"
	StateMetadataResolved State = "metadata_resolved"
	StateVerified         State = "verified"
	StatePackaged         State = "packaged"
	StateDone             State = "done"
	StateAborted          State = "aborted"
)

// Resolver produces metadata for a classified image.
type Resolver interface {
	Resolve(ctx context.Context, slot data.DestinationSlot) data.Resolution
}

// PipelineConfig is everything one run needs to know up front.
type PipelineConfig struct {
	SourceDir string
	Name      string
	// OutputDir receives the pack folder and the archive.
	OutputDir string
	// AssetsDir is searched after SourceDir for pack.mcmeta and credits.txt.
	AssetsDir string
	// ArchiveRoot is what archive entry names are relative to.
	ArchiveRoot string
	Toggles     config.Toggles
	Policy      integrations.CollisionPolicy
}

// Pipeline builds one resource pack. It is single-use and not safe for
// concurrent calls.
type Pipeline struct {
	cfg      PipelineConfig
	resolver Resolver
	archiver integrations.Archiver
	logger   *log.Logger

	state  State
	report *data.RunReport
	roots  BucketRoots
	slots  []data.DestinationSlot
}

func NewPipeline(cfg PipelineConfig, resolver Resolver, archiver integrations.Archiver, logger *log.Logger) *Pipeline {
	if cfg.Policy == "" {
		cfg.Policy = integrations.PolicySuffix
	}
	return &Pipeline{
		cfg:      cfg,
		resolver: resolver,
		archiver: archiver,
		logger:   logger,
		state:    StateInit,
	}
}

func (p *Pipeline) State() State {
	return p.state
}

// Run executes every phase. The report is returned even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context) (*data.RunReport, error) {
	p.report = &data.RunReport{
		ID:        uuid.NewString(),
		Name:      p.cfg.Name,
		SourceDir: p.cfg.SourceDir,
		Manifest:  data.NewOutputManifest(),
		StartedAt: time.Now(),
	}
	defer func() {
		p.report.State = string(p.state)
		p.report.FinishedAt = time.Now()
	}()

	if err := p.validate(); err != nil {
		p.state = StateAborted
		p.record(log.ErrorLevel, err.Error())
		return p.report, err
	}
	p.state = StateSourceValidated

	phases := []struct {
		next State
		run  func(ctx context.Context) error
	}{
		{StateAssetsStaged, p.stage},
		{StateImagesClassified, p.classify},
		{StateMetadataResolved, p.resolve},
		{StateVerified, p.prune},
		{StatePackaged, p.pack},
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return p.report, err
		}
		if err := phase.run(ctx); err != nil {
			p.record(log.ErrorLevel, err.Error())
			p.finalCheck()
			return p.report, err
		}
		p.state = phase.next
	}

	p.finalCheck()
	p.state = StateDone
	return p.report, nil
}

func (p *Pipeline) validate() error {
	if p.cfg.SourceDir == "" {
		return fmt.Errorf("%w: no folder selected", ErrMissingInput)
	}
	if integrations.SanitizeFilename(p.cfg.Name) == "" {
		return fmt.Errorf("%w: no folder name provided", ErrMissingInput)
	}

	info, err := os.Stat(p.cfg.SourceDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a folder", ErrMissingInput, p.cfg.SourceDir)
	}

	if !isFile(filepath.Join(p.cfg.SourceDir, "pack.png")) {
		return fmt.Errorf("%w: pack.png not found in %s", ErrMissingInput, p.cfg.SourceDir)
	}
	return nil
}

func (p *Pipeline) stage(_ context.Context) error {
	name := integrations.SanitizeFilename(p.cfg.Name)
	base, renamed := integrations.UniquePath(filepath.Join(p.cfg.OutputDir, name), p.cfg.Policy)
	if renamed {
		p.record(log.WarnLevel, "Avoided using duplicate folder name", "renamed", filepath.Base(base))
	}
	p.report.BaseDir = base
	p.roots = NewBucketRoots(base)

	for _, dir := range []string{p.roots.CIT, p.roots.CTM} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := copyFile(filepath.Join(p.cfg.SourceDir, "pack.png"), filepath.Join(base, "pack.png")); err != nil {
		return fmt.Errorf("failed to copy pack.png: %w", err)
	}
	p.report.Manifest.Entry("pack.png").Expected = true
	p.record(log.InfoLevel, "Moved pack.png", "dir", base)

	for _, asset := range []string{"pack.mcmeta", "credits.txt"} {
		src, ok := p.findAsset(asset)
		if !ok {
			p.record(log.WarnLevel, fmt.Sprintf("Didn't find %s, continuing without it", asset))
			continue
		}
		if err := copyFile(src, filepath.Join(base, asset)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", asset, err)
		}
		p.report.Manifest.Entry(asset).Expected = true
		p.record(log.InfoLevel, "Moved "+asset, "from", src, "dir", base)
	}
	return nil
}

// findAsset looks in the source folder first, then the assets folder.
func (p *Pipeline) findAsset(name string) (string, bool) {
	for _, dir := range []string{p.cfg.SourceDir, p.cfg.AssetsDir} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name)
		if isFile(path) {
			return path, true
		}
	}
	return "", false
}

func (p *Pipeline) classify(_ context.Context) error {
	seen := make(map[string]int)
	outputDir, _ := filepath.Abs(p.cfg.OutputDir)

	return filepath.WalkDir(p.cfg.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// an output folder inside the source is not part of the pack
			if abs, _ := filepath.Abs(path); abs == outputDir && path != p.cfg.SourceDir {
				return filepath.SkipDir
			}
			return nil
		}
		// symlinked files count when they point at a regular file; linked
		// directories are not descended into
		if d.Type()&fs.ModeSymlink != 0 {
			if !isFile(path) {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if !IsCandidate(d.Name(), ExcludedFiles) {
			return nil
		}

		rel, err := filepath.Rel(p.cfg.SourceDir, filepath.Dir(path))
		if err != nil {
			return err
		}
		img := data.DiscoveredImage{FileName: d.Name(), RelativeSourceDir: rel, SourcePath: path}
		slot := Classify(img.RelativeSourceDir, img.FileName, p.roots)

		if err := os.MkdirAll(slot.DestinationDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", slot.DestinationDir, err)
		}
		dest := filepath.Join(slot.DestinationDir, slot.TextureFileName)
		if err := copyFile(img.SourcePath, dest); err != nil {
			return fmt.Errorf("failed to copy %s: %w", img.SourcePath, err)
		}

		if i, dup := seen[slot.DestinationDir]; dup {
			p.record(log.WarnLevel, "Duplicate item name, later file wins", "item", slot.ItemKey, "file", img.SourcePath)
			p.slots[i] = slot
			return nil
		}
		seen[slot.DestinationDir] = len(p.slots)
		p.slots = append(p.slots, slot)
		p.logger.Debug("Classified image", "file", img.SourcePath, "bucket", slot.Bucket, "zone", slot.Zone)
		return nil
	})
}

func (p *Pipeline) resolve(ctx context.Context) error {
	for _, slot := range p.slots {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome := data.ItemOutcome{
			ItemKey:        slot.ItemKey,
			Bucket:         slot.Bucket,
			Zone:           slot.Zone,
			DestinationDir: slot.DestinationDir,
		}
		dest := filepath.Join(slot.DestinationDir, slot.PropertiesFileName())

		res := p.resolver.Resolve(ctx, slot)
		switch res.Kind {
		case data.ResolvedCopyVerbatim:
			if err := copyFile(res.OverridePath, dest); err != nil {
				return fmt.Errorf("failed to copy override %s: %w", res.OverridePath, err)
			}
			outcome.Status = data.StatusOverride
			outcome.Detail = res.OverridePath
			p.record(log.InfoLevel, "Used local properties", "item", slot.ItemKey, "from", filepath.Dir(res.OverridePath))
		case data.ResolvedDescriptor:
			if err := os.WriteFile(dest, []byte(res.Descriptor.Properties()), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", dest, err)
			}
			outcome.Status = data.StatusGenerated
			outcome.Detail = res.Key
			p.record(log.InfoLevel, "Converted "+res.Key, "to", slot.PropertiesFileName(), "dir", slot.DestinationDir)
		default:
			outcome.Status = data.StatusFailed
			if res.Err != nil {
				outcome.Detail = res.Err.Error()
			}
			p.record(log.ErrorLevel, "Could not find or convert "+res.Key, "err", res.Err)
		}
		p.report.Items = append(p.report.Items, outcome)
	}
	return nil
}

// prune removes an unused ctm root. The cit root is always kept.
func (p *Pipeline) prune(_ context.Context) error {
	entries, err := os.ReadDir(p.roots.CTM)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	if err := os.Remove(p.roots.CTM); err != nil {
		return fmt.Errorf("failed to remove empty ctm folder: %w", err)
	}
	p.record(log.WarnLevel, "ctm folder was empty and has been removed")
	return nil
}

func (p *Pipeline) pack(_ context.Context) error {
	if !p.cfg.Toggles.CreateArchive || p.archiver == nil {
		return nil
	}

	name := integrations.SanitizeFilename(p.cfg.Name)
	zipPath, renamed := integrations.UniquePath(filepath.Join(p.cfg.OutputDir, name+".zip"), p.cfg.Policy)
	if renamed {
		p.record(log.WarnLevel, "Avoided using duplicate zip file name", "renamed", filepath.Base(zipPath))
	}

	count, err := p.archiver.Archive(p.report.BaseDir, zipPath, p.cfg.ArchiveRoot)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", p.report.BaseDir, err)
	}
	p.report.ArchivePath = zipPath
	p.record(log.InfoLevel, fmt.Sprintf("Folder %s was zipped", name), "archive", zipPath, "files", count)
	return nil
}

// finalCheck re-verifies the staged top-level files and sets Success.
func (p *Pipeline) finalCheck() {
	if p.report.BaseDir == "" {
		return
	}
	for i := range p.report.Manifest.Entries {
		entry := &p.report.Manifest.Entries[i]
		if !entry.Expected {
			continue
		}
		entry.Present = isFile(filepath.Join(p.report.BaseDir, entry.Name))
		if !entry.Present {
			err := fmt.Errorf("%w: %s was not cloned into %s", ErrVerificationMismatch, entry.Name, p.report.BaseDir)
			p.record(log.ErrorLevel, err.Error())
		}
	}

	p.report.Success = p.report.Manifest.Verified()
	if p.report.Success {
		p.record(log.InfoLevel, "All files were successfully copied and verified!")
	} else {
		p.record(log.ErrorLevel, "Some files were not successfully copied. Please check the errors above.")
	}
}

// record logs a decision and keeps it in the report.
func (p *Pipeline) record(level log.Level, msg string, keyvals ...any) {
	p.logger.Log(level, msg, keyvals...)

	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keyvals[i], keyvals[i+1])
	}
	p.report.Events = append(p.report.Events, data.Event{Level: level.String(), Message: b.String()})
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// copyFile copies bytes and the modification time, like a shell cp -p.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
