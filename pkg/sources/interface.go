package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kerbaras/skypack/pkg/config"
)

// ErrNotFound is returned when the key does not exist in the source.
var ErrNotFound = errors.New("not found")

// Source is a key-value lookup over the item repository. Keys look like
// "items/SWORD.json".
type Source interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Name() string
}

// New builds the source selected by cfg.Type.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case config.SourceGitHub, "":
		client := http.DefaultClient
		if cfg.GitHub.Timeout > 0 {
			client = &http.Client{Timeout: cfg.GitHub.Timeout}
		}
		return NewGitHub(cfg.GitHub, client), nil
	case config.SourceS3:
		store, err := NewObjectStore(cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.SourceDir:
		return NewDir(cfg.Dir.Path), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}
