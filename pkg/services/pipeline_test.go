package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerbaras/skypack/pkg/config"
	"github.com/kerbaras/skypack/pkg/data"
	"github.com/kerbaras/skypack/pkg/integrations"
	"github.com/kerbaras/skypack/pkg/logging"
)

type testEnv struct {
	source    string
	output    string
	overrides string
	assets    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		source:    filepath.Join(root, "rawpack"),
		output:    filepath.Join(root, "output"),
		overrides: filepath.Join(root, "install"),
		assets:    filepath.Join(root, "install"),
	}
	require.NoError(t, os.MkdirAll(env.source, 0755))
	require.NoError(t, os.MkdirAll(env.overrides, 0755))
	return env
}

func (e *testEnv) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(e.source, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *testEnv) pipeline(t *testing.T, src *mockSource, toggles config.Toggles, policy integrations.CollisionPolicy) *Pipeline {
	t.Helper()
	store := NewMetadataStore(src, StoreOptions{OverridesDir: e.overrides}, logging.Discard())
	t.Cleanup(store.Close)
	return NewPipeline(PipelineConfig{
		SourceDir:   e.source,
		Name:        "MyPack",
		OutputDir:   e.output,
		AssetsDir:   e.assets,
		ArchiveRoot: filepath.Dir(e.output),
		Toggles:     toggles,
		Policy:      policy,
	}, store, integrations.NewZipArchiver(), logging.Discard())
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestPipeline_FullRun(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")
	env.write(t, "pack.mcmeta", `{"pack":{"pack_format":1}}`)
	env.write(t, "Sword.png", "sword-bytes")
	env.write(t, filepath.Join("weapons", "stick.png"), "stick-bytes")
	env.write(t, filepath.Join("dwarven_mines", "gemstone.png"), "gem-bytes")

	src := jsonSource(map[string]string{
		"items/SWORD.json":    `{"itemid":"SWORD_OF_DOOM"}`,
		"items/STICK.json":    `{"displayname":"Stick"}`,
		"items/GEMSTONE.json": `{"itemid":"GEMSTONE"}`,
	})

	p := env.pipeline(t, src, config.Toggles{CreateArchive: true}, integrations.PolicySuffix)
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, p.State())
	assert.Equal(t, string(StateDone), report.State)
	assert.True(t, report.Success)
	assert.NotEmpty(t, report.ID)
	assert.Len(t, report.Items, 3)
	assert.Equal(t, 0, report.Failures())

	base := filepath.Join(env.output, "MyPack")
	assert.Equal(t, base, report.BaseDir)
	cit := filepath.Join(base, "assets", "minecraft", "mcpatcher", "cit")
	ctm := filepath.Join(base, "assets", "minecraft", "mcpatcher", "ctm")

	t.Run("texture is copied with a lowercase name", func(t *testing.T) {
		assert.Equal(t, "sword-bytes", readFile(t, filepath.Join(cit, "sword", "sword.png")))
	})

	t.Run("generated properties", func(t *testing.T) {
		assert.Equal(t, "type=item\nitems=SWORD_OF_DOOM\ntexture=sword.png\nnbt.ExtraAttributes.id=sword\n",
			readFile(t, filepath.Join(cit, "sword", "sword.properties")))
	})

	t.Run("items line omitted without itemid", func(t *testing.T) {
		assert.Equal(t, "type=item\ntexture=stick.png\nnbt.ExtraAttributes.id=stick\n",
			readFile(t, filepath.Join(cit, "weapons", "stick", "stick.properties")))
	})

	t.Run("zone image lands in ctm", func(t *testing.T) {
		assert.Equal(t, "gem-bytes", readFile(t, filepath.Join(ctm, "dwarven_mines", "gemstone", "gemstone.png")))
	})

	t.Run("pack files are staged", func(t *testing.T) {
		assert.Equal(t, "icon", readFile(t, filepath.Join(base, "pack.png")))
		assert.FileExists(t, filepath.Join(base, "pack.mcmeta"))
		assert.NoFileExists(t, filepath.Join(base, "credits.txt"))

		mcmeta := report.Manifest.Entry("pack.mcmeta")
		assert.True(t, mcmeta.Expected)
		assert.True(t, mcmeta.Present)
		assert.False(t, report.Manifest.Entry("credits.txt").Expected)
	})

	t.Run("pack images are not classified", func(t *testing.T) {
		assert.NoDirExists(t, filepath.Join(cit, "pack"))
	})

	t.Run("archive is written", func(t *testing.T) {
		assert.Equal(t, filepath.Join(env.output, "MyPack.zip"), report.ArchivePath)
		assert.FileExists(t, report.ArchivePath)
	})
}

func TestPipeline_OverrideCopiedVerbatim(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")
	env.write(t, filepath.Join("crystal_hollows", "jade.png"), "jade")

	override := "type=ctm\nmethod=fixed\r\n# comment\n"
	overridePath := filepath.Join(env.overrides, "crystal_hollows_properties", "jade.properties")
	require.NoError(t, os.MkdirAll(filepath.Dir(overridePath), 0755))
	require.NoError(t, os.WriteFile(overridePath, []byte(override), 0644))

	src := &mockSource{}
	report, err := env.pipeline(t, src, config.Toggles{}, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)

	got := readFile(t, filepath.Join(report.BaseDir, "assets", "minecraft", "mcpatcher", "ctm", "crystal_hollows", "jade", "jade.properties"))
	assert.Equal(t, override, got)
	assert.Empty(t, src.calls)
	require.Len(t, report.Items, 1)
	assert.Equal(t, data.StatusOverride, report.Items[0].Status)
}

func TestPipeline_MissingPackPngAborts(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "sword.png", "sword")

	p := env.pipeline(t, &mockSource{}, config.Toggles{CreateArchive: true}, integrations.PolicySuffix)
	report, err := p.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingInput))
	assert.Equal(t, StateAborted, p.State())
	assert.False(t, report.Success)
	assert.NoDirExists(t, env.output)
	assert.NoDirExists(t, filepath.Join(env.output, "MyPack", "assets"))
}

func TestPipeline_InvalidInputs(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")
	file := env.write(t, "notes.txt", "x")

	tests := []struct {
		name   string
		source string
		pack   string
	}{
		{"empty source", "", "MyPack"},
		{"empty name", env.source, ""},
		{"name sanitizes to nothing", env.source, " .. "},
		{"source is a file", file, "MyPack"},
		{"source does not exist", filepath.Join(env.source, "missing"), "MyPack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(PipelineConfig{SourceDir: tt.source, Name: tt.pack, OutputDir: env.output},
				NewMetadataStore(&mockSource{}, StoreOptions{}, logging.Discard()), nil, logging.Discard())
			_, err := p.Run(context.Background())
			assert.ErrorIs(t, err, ErrMissingInput)
			assert.Equal(t, StateAborted, p.State())
		})
	}
	assert.NoDirExists(t, env.output)
}

func TestPipeline_EmptyCTMRemovedCITKept(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")

	report, err := env.pipeline(t, &mockSource{}, config.Toggles{}, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)

	mcpatcher := filepath.Join(report.BaseDir, "assets", "minecraft", "mcpatcher")
	assert.DirExists(t, filepath.Join(mcpatcher, "cit"))
	assert.NoDirExists(t, filepath.Join(mcpatcher, "ctm"))
	assert.Empty(t, report.ArchivePath)
}

func TestPipeline_RemoteFailureDoesNotStopRun(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")
	env.write(t, "ghost.png", "ghost")
	env.write(t, "sword.png", "sword")

	src := jsonSource(map[string]string{"items/SWORD.json": `{"itemid":"SWORD"}`})
	report, err := env.pipeline(t, src, config.Toggles{}, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 1, report.Failures())
	cit := filepath.Join(report.BaseDir, "assets", "minecraft", "mcpatcher", "cit")
	assert.FileExists(t, filepath.Join(cit, "ghost", "ghost.png"))
	assert.NoFileExists(t, filepath.Join(cit, "ghost", "ghost.properties"))
	assert.FileExists(t, filepath.Join(cit, "sword", "sword.properties"))
}

func TestPipeline_DuplicateKeyLaterFileWins(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")
	env.write(t, "SWORD.png", "upper")
	env.write(t, "sword.png", "lower")

	report, err := env.pipeline(t, &mockSource{}, config.Toggles{}, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, report.Items, 1)
	got := readFile(t, filepath.Join(report.BaseDir, "assets", "minecraft", "mcpatcher", "cit", "sword", "sword.png"))
	assert.Equal(t, "lower", got)
}

func TestPipeline_AssetsFallback(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")
	require.NoError(t, os.WriteFile(filepath.Join(env.assets, "credits.txt"), []byte("thanks"), 0644))

	report, err := env.pipeline(t, &mockSource{}, config.Toggles{}, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "thanks", readFile(t, filepath.Join(report.BaseDir, "credits.txt")))
	assert.True(t, report.Manifest.Entry("credits.txt").Present)
}

func TestPipeline_RunningTwiceSuffixesOutputs(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")
	toggles := config.Toggles{CreateArchive: true}

	first, err := env.pipeline(t, &mockSource{}, toggles, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)
	second, err := env.pipeline(t, &mockSource{}, toggles, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(env.output, "MyPack"), first.BaseDir)
	assert.Equal(t, filepath.Join(env.output, "MyPack(1)"), second.BaseDir)
	assert.Equal(t, filepath.Join(env.output, "MyPack.zip"), first.ArchivePath)
	assert.Equal(t, filepath.Join(env.output, "MyPack(1).zip"), second.ArchivePath)
	assert.FileExists(t, first.ArchivePath)
}

func TestPipeline_OverwritePolicyReusesFolder(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")

	_, err := env.pipeline(t, &mockSource{}, config.Toggles{}, integrations.PolicyOverwrite).Run(context.Background())
	require.NoError(t, err)
	second, err := env.pipeline(t, &mockSource{}, config.Toggles{}, integrations.PolicyOverwrite).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(env.output, "MyPack"), second.BaseDir)
	assert.NoDirExists(t, filepath.Join(env.output, "MyPack(1)"))
}

type failingArchiver struct{}

func (failingArchiver) Archive(string, string, string) (int, error) {
	return 0, errors.New("disk full")
}

func TestPipeline_ArchiveErrorIsFatal(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")

	store := NewMetadataStore(&mockSource{}, StoreOptions{}, logging.Discard())
	p := NewPipeline(PipelineConfig{
		SourceDir: env.source,
		Name:      "MyPack",
		OutputDir: env.output,
		Toggles:   config.Toggles{CreateArchive: true},
	}, store, failingArchiver{}, logging.Discard())

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateVerified, p.State())
	assert.Empty(t, report.ArchivePath)
	assert.DirExists(t, report.BaseDir)
}

func TestPipeline_OutputInsideSourceIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")
	env.write(t, "sword.png", "sword")
	env.output = filepath.Join(env.source, "output")

	first, err := env.pipeline(t, &mockSource{}, config.Toggles{}, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)
	second, err := env.pipeline(t, &mockSource{}, config.Toggles{}, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, first.Items, 1)
	assert.Len(t, second.Items, 1)
}

func TestPipeline_SymlinkedTextureIsCopied(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "pack.png", "icon")

	shared := t.TempDir()
	target := filepath.Join(shared, "sword.png")
	require.NoError(t, os.WriteFile(target, []byte("linked"), 0644))
	if err := os.Symlink(target, filepath.Join(env.source, "sword.png")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(shared, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(shared, "nested", "bow.png"), []byte("bow"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(shared, "nested"), filepath.Join(env.source, "linked_dir")))

	report, err := env.pipeline(t, &mockSource{}, config.Toggles{}, integrations.PolicySuffix).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Items, 1)
	assert.Equal(t, "sword", report.Items[0].ItemKey)
	got := readFile(t, filepath.Join(report.BaseDir, "assets", "minecraft", "mcpatcher", "cit", "sword", "sword.png"))
	assert.Equal(t, "linked", got)
}
