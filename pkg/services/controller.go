package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/kerbaras/skypack/pkg/config"
	"github.com/kerbaras/skypack/pkg/data"
	"github.com/kerbaras/skypack/pkg/integrations"
	"github.com/kerbaras/skypack/pkg/sources"
)

// HistoryRepository stores finished runs.
type HistoryRepository interface {
	SaveReport(report *data.RunReport) error
	Close() error
}

// BuildRequest carries the inputs gathered by the CLI for one build.
type BuildRequest struct {
	SourceDir string
	Name      string
	Toggles   config.Toggles
	LogPath   string
}

// PackController wires the source, metadata store, archiver and history
// repository from a Config and runs builds with them.
type PackController struct {
	cfg      *config.Config
	logger   *log.Logger
	store    *MetadataStore
	archiver integrations.Archiver
	repo     HistoryRepository
	openRepo func() (HistoryRepository, error)
	policy   integrations.CollisionPolicy
}

func NewPackController(cfg *config.Config, logger *log.Logger) (*PackController, error) {
	source, err := sources.New(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	c, err := NewPackControllerWith(cfg, logger, source, integrations.NewZipArchiver(), nil)
	if err != nil {
		return nil, err
	}
	if cfg.History.Enabled {
		// opened on the first run that passes validation
		path := cfg.History.Path
		if path == "" {
			path = filepath.Join(cfg.OutputDir, config.HistoryFileName)
		}
		c.openRepo = func() (HistoryRepository, error) {
			r, err := data.NewDuckDBRepository(path)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
	}
	return c, nil
}

// NewPackControllerWith uses the given collaborators. repo may be nil.
func NewPackControllerWith(cfg *config.Config, logger *log.Logger, source sources.Source, archiver integrations.Archiver, repo HistoryRepository) (*PackController, error) {
	policy, err := integrations.ParsePolicy(cfg.CollisionPolicy)
	if err != nil {
		return nil, err
	}

	store := NewMetadataStore(source, StoreOptions{
		OverridesDir:   cfg.OverridesDir,
		LookupInterval: cfg.LookupInterval,
		Memoize:        cfg.MemoizeLookups,
	}, logger)

	return &PackController{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		archiver: archiver,
		repo:     repo,
		policy:   policy,
	}, nil
}

// Build runs one pipeline and records it in the history when enabled.
func (c *PackController) Build(ctx context.Context, req BuildRequest) (*data.RunReport, error) {
	archiveRoot, err := os.Getwd()
	if err != nil {
		archiveRoot = ""
	}

	pipeline := NewPipeline(PipelineConfig{
		SourceDir:   req.SourceDir,
		Name:        req.Name,
		OutputDir:   c.cfg.OutputDir,
		AssetsDir:   c.cfg.AssetsDir,
		ArchiveRoot: archiveRoot,
		Toggles:     req.Toggles,
		Policy:      c.policy,
	}, c.store, c.archiver, c.logger)

	report, runErr := pipeline.Run(ctx)
	report.LogPath = req.LogPath

	if pipeline.State() != StateAborted {
		if repo := c.history(); repo != nil {
			if err := repo.SaveReport(report); err != nil {
				c.logger.Warn("Failed to save run history", "err", err)
			}
		}
	}
	return report, runErr
}

func (c *PackController) history() HistoryRepository {
	if c.repo == nil && c.openRepo != nil {
		r, err := c.openRepo()
		c.openRepo = nil
		if err != nil {
			c.logger.Warn("Run history disabled", "err", err)
			return nil
		}
		c.repo = r
	}
	return c.repo
}

func (c *PackController) Close() error {
	c.store.Close()
	if c.repo != nil {
		return c.repo.Close()
	}
	return nil
}
