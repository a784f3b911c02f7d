package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/kerbaras/skypack/pkg/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"

	// cfgFile allows specifying a custom config file
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "skypack [SOURCE_DIR]",
		Short: "Build Skyblock texture packs from a folder of item images",
		Long: `Build a Minecraft resource pack from a folder of item textures.

Images are sorted into MCPatcher CIT and CTM folders, each one gets a
.properties file from a local zone override or the NEU item repository,
and the result can be zipped ready for the resourcepacks folder.

Running skypack without a subcommand is the same as 'skypack build'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBuild,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./skypack.yaml or the user config dir)")
	addBuildFlags(rootCmd)

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// searchDirs are the places a skypack.yaml is looked up when --config is absent.
func searchDirs() []string {
	dirs := []string{"."}
	if dir, err := config.UserConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	return dirs
}

func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	return config.Load(config.LoadOptions{
		ConfigFilePath: cfgFile,
		SearchDirs:     searchDirs(),
		Flags:          cmd.Flags(),
	})
}

func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
