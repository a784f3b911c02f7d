package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, path, err := Load(LoadOptions{SearchDirs: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Empty(t, path)
	assert.True(t, cfg.CreateArchive)
	assert.False(t, cfg.CreateLog)
	assert.False(t, cfg.VerboseLog)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "suffix", cfg.CollisionPolicy)
	assert.Equal(t, SourceGitHub, cfg.Source.Type)
	assert.Equal(t, "NotEnoughUpdates/NotEnoughUpdates-REPO", cfg.Source.GitHub.Repo)
	assert.Equal(t, InstallDir(), cfg.OverridesDir)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join("output", HistoryFileName), cfg.History.Path)
}

func TestLoadHistoryPathFollowsOutputDir(t *testing.T) {
	out := filepath.Join(t.TempDir(), "packs")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "output", "")
	require.NoError(t, flags.Parse([]string{"--output", out}))

	cfg, _, err := Load(LoadOptions{Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, HistoryFileName), cfg.History.Path)

	t.Setenv("SKYPACK_HISTORY_PATH", "/var/lib/skypack/runs.db")
	cfg, _, err = Load(LoadOptions{Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/skypack/runs.db", cfg.History.Path, "explicit path is kept")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
create_archive: false
verbose_log: true
collision_policy: overwrite
lookup_interval: 250ms
source:
  type: dir
  dir:
    path: /srv/neu-repo
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skypack.yaml"), []byte(content), 0644))

	cfg, path, err := Load(LoadOptions{SearchDirs: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "skypack.yaml"), path)
	assert.False(t, cfg.CreateArchive)
	assert.True(t, cfg.VerboseLog)
	assert.Equal(t, "overwrite", cfg.CollisionPolicy)
	assert.Equal(t, 250*time.Millisecond, cfg.LookupInterval)
	assert.Equal(t, SourceDir, cfg.Source.Type)
	assert.Equal(t, "/srv/neu-repo", cfg.Source.Dir.Path)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, _, err := Load(LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SKYPACK_CREATE_LOG", "true")
	t.Setenv("SKYPACK_SOURCE_GITHUB_REF", "prerelease")

	cfg, _, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.True(t, cfg.CreateLog)
	assert.Equal(t, "prerelease", cfg.Source.GitHub.Ref)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skypack.yaml"), []byte("create_archive: true\n"), 0644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("archive", true, "")
	flags.String("policy", "suffix", "")
	require.NoError(t, flags.Parse([]string{"--archive=false"}))

	cfg, _, err := Load(LoadOptions{SearchDirs: []string{dir}, Flags: flags})
	require.NoError(t, err)

	assert.False(t, cfg.CreateArchive)
	// unchanged flag does not shadow the default
	assert.Equal(t, "suffix", cfg.CollisionPolicy)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad policy", func(c *Config) { c.CollisionPolicy = "rename" }, true},
		{"unknown source", func(c *Config) { c.Source.Type = "ftp" }, true},
		{"s3 without bucket", func(c *Config) { c.Source.Type = SourceS3; c.Source.S3.Endpoint = "localhost:9000" }, true},
		{"s3 complete", func(c *Config) {
			c.Source.Type = SourceS3
			c.Source.S3.Endpoint = "localhost:9000"
			c.Source.S3.Bucket = "neu"
		}, false},
		{"dir without path", func(c *Config) { c.Source.Type = SourceDir }, true},
		{"negative interval", func(c *Config) { c.LookupInterval = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMarshalMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.GitHub.Token = "ghp_secret"
	cfg.Source.S3.SecretKey = "s3secret"

	out, err := cfg.Marshal()
	require.NoError(t, err)

	assert.NotContains(t, string(out), "ghp_secret")
	assert.NotContains(t, string(out), "s3secret")
	assert.Contains(t, string(out), "collision_policy: suffix")
	// receiver keeps its secrets
	assert.Equal(t, "ghp_secret", cfg.Source.GitHub.Token)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "skypack.yaml")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["create_archive"])

	// refuses to clobber
	assert.Error(t, WriteDefault(path))

	// and the written file loads back
	cfg, _, err := Load(LoadOptions{ConfigFilePath: path})
	require.NoError(t, err)
	assert.Equal(t, "suffix", cfg.CollisionPolicy)
}
