package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kerbaras/skypack/pkg/data"
	"github.com/kerbaras/skypack/pkg/sources"
)

// StoreOptions tune how the metadata store reaches its sources.
type StoreOptions struct {
	// OverridesDir holds the <zone>_properties folders.
	OverridesDir string
	// LookupInterval pauses between remote lookups when positive.
	LookupInterval time.Duration
	// Memoize reuses remote results for repeated item keys within one run.
	Memoize bool
}

type memoEntry struct {
	body []byte
	err  error
}

// MetadataStore resolves item keys to properties, preferring zone overrides.
type MetadataStore struct {
	source       sources.Source
	overridesDir string
	logger       *log.Logger
	rateLimiter  *time.Ticker
	memo         map[string]memoEntry
}

func NewMetadataStore(source sources.Source, opts StoreOptions, logger *log.Logger) *MetadataStore {
	s := &MetadataStore{
		source:       source,
		overridesDir: opts.OverridesDir,
		logger:       logger,
	}
	if opts.LookupInterval > 0 {
		s.rateLimiter = time.NewTicker(opts.LookupInterval)
	}
	if opts.Memoize {
		s.memo = make(map[string]memoEntry)
	}
	return s
}

// RemoteKey is the repository path of an item descriptor.
func RemoteKey(itemKey string) string {
	return "items/" + strings.ToUpper(itemKey) + ".json"
}

// OverridePath returns the zone override for slot and whether it exists.
func (s *MetadataStore) OverridePath(slot data.DestinationSlot) (string, bool) {
	if slot.Zone == data.ZoneNone {
		return "", false
	}
	path := filepath.Join(s.overridesDir, slot.Zone.OverrideFolder(), slot.PropertiesFileName())
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, true
}

// Resolve never returns an error: failures come back as ResolvedFailure.
func (s *MetadataStore) Resolve(ctx context.Context, slot data.DestinationSlot) data.Resolution {
	if path, ok := s.OverridePath(slot); ok {
		s.logger.Debug("Found local override", "item", slot.ItemKey, "zone", slot.Zone, "path", path)
		return data.Resolution{Kind: data.ResolvedCopyVerbatim, OverridePath: path}
	}

	key := RemoteKey(slot.ItemKey)
	body, err := s.fetch(ctx, key)
	if err != nil {
		return data.Resolution{
			Kind: data.ResolvedFailure,
			Key:  key,
			Err:  fmt.Errorf("%w: %s: %w", ErrRemoteLookup, key, err),
		}
	}

	descriptor, err := decodeDescriptor(body)
	if err != nil {
		return data.Resolution{
			Kind: data.ResolvedFailure,
			Key:  key,
			Err:  fmt.Errorf("%w: %s: %w", ErrMalformedMetadata, key, err),
		}
	}
	descriptor.TextureFileName = slot.TextureFileName
	descriptor.ItemKey = slot.ItemKey

	return data.Resolution{Kind: data.ResolvedDescriptor, Descriptor: descriptor, Key: key}
}

// decodeDescriptor reads the exact "itemid" key of a JSON object. Strings
// are used as is, other scalars keep their JSON text, null counts as absent.
func decodeDescriptor(body []byte) (data.MetadataDescriptor, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return data.MetadataDescriptor{}, err
	}
	if fields == nil {
		return data.MetadataDescriptor{}, errors.New("descriptor is not a json object")
	}

	raw, ok := fields["itemid"]
	if !ok {
		return data.MetadataDescriptor{}, nil
	}
	raw = bytes.TrimSpace(raw)

	switch {
	case string(raw) == "null":
		return data.MetadataDescriptor{}, nil
	case len(raw) > 0 && raw[0] == '"':
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return data.MetadataDescriptor{}, err
		}
		return data.MetadataDescriptor{ItemID: id}, nil
	case len(raw) > 0 && (raw[0] == '{' || raw[0] == '['):
		return data.MetadataDescriptor{}, errors.New("itemid is not a scalar")
	default:
		return data.MetadataDescriptor{ItemID: string(raw)}, nil
	}
}

func (s *MetadataStore) fetch(ctx context.Context, key string) ([]byte, error) {
	if s.memo != nil {
		if entry, ok := s.memo[key]; ok {
			s.logger.Debug("Reusing lookup", "key", key)
			return entry.body, entry.err
		}
	}

	if s.rateLimiter != nil {
		select {
		case <-s.rateLimiter.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.logger.Debug("Fetching descriptor", "key", key, "source", s.source.Name())
	body, err := s.source.Fetch(ctx, key)

	// cancellation is not a property of the key
	if s.memo != nil && ctx.Err() == nil {
		s.memo[key] = memoEntry{body: body, err: err}
	}
	return body, err
}

// Close stops the rate limiter.
func (s *MetadataStore) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
