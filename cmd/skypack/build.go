package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kerbaras/skypack/pkg/app"
	"github.com/kerbaras/skypack/pkg/app/components"
	"github.com/kerbaras/skypack/pkg/config"
	"github.com/kerbaras/skypack/pkg/integrations"
	"github.com/kerbaras/skypack/pkg/logging"
	"github.com/kerbaras/skypack/pkg/services"
)

// Prompter asks for inputs the command line left out.
type Prompter interface {
	PickFolder(start string) (string, error)
	PromptName(title string) (string, error)
	ConfigureToggles(defaults config.Toggles) (config.Toggles, error)
}

var (
	newPrompter = func() Prompter { return app.NewApp() }
	isTerminal  = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

var buildCmd = &cobra.Command{
	Use:   "build [SOURCE_DIR]",
	Short: "Build a resource pack from a texture folder",
	Long: `Build a resource pack from a texture folder.

SOURCE_DIR must contain pack.png. pack.mcmeta and credits.txt are taken
from SOURCE_DIR or, failing that, from assets_dir. When SOURCE_DIR or
--name is missing and stdin is a terminal, skypack asks for them.`,
	Example: `  skypack build ./rawpack -n MyPack
  skypack build ./rawpack -n MyPack --archive=false --log
  skypack --configure`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	addBuildFlags(buildCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringP("name", "n", "", "name of the output folder and archive")
	cmd.Flags().Bool("archive", d.CreateArchive, "zip the pack folder")
	cmd.Flags().Bool("log", d.CreateLog, "write a log file next to the pack")
	cmd.Flags().Bool("verbose", d.VerboseLog, "include debug messages in the log")
	cmd.Flags().Bool("configure", false, "choose options in an interactive form")
	cmd.Flags().String("policy", d.CollisionPolicy, "what to do when an output name exists: suffix or overwrite")
	cmd.Flags().StringP("output", "o", d.OutputDir, "folder receiving the pack, archive and log")
	cmd.Flags().String("source", d.Source.Type, "metadata source: github, s3 or dir")
	cmd.Flags().Bool("memoize", d.MemoizeLookups, "reuse lookups for repeated item names")
	cmd.Flags().Duration("interval", d.LookupInterval, "pause between remote lookups")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, used, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var sourceDir string
	if len(args) > 0 {
		sourceDir = args[0]
	}
	name, _ := cmd.Flags().GetString("name")
	configure, _ := cmd.Flags().GetBool("configure")
	toggles := cfg.Toggles

	if isTerminal() {
		prompter := newPrompter()
		if sourceDir == "" {
			start, _ := os.Getwd()
			if sourceDir, err = prompter.PickFolder(start); err != nil {
				return err
			}
		}
		if name == "" && sourceDir != "" {
			if name, err = prompter.PromptName("Name of the output folder"); err != nil {
				return err
			}
		}
		if configure && sourceDir != "" && name != "" {
			if toggles, err = prompter.ConfigureToggles(toggles); err != nil {
				return err
			}
		}
	}

	logPath := ""
	if toggles.CreateLog && sourceDir != "" && integrations.SanitizeFilename(name) != "" {
		policy, err := integrations.ParsePolicy(cfg.CollisionPolicy)
		if err != nil {
			return err
		}
		logPath, _ = integrations.UniquePath(filepath.Join(cfg.OutputDir, integrations.SanitizeFilename(name)+".log"), policy)
	}

	logger, closeLog, err := logging.New(logging.Options{
		Verbose:  toggles.VerboseLog,
		FilePath: logPath,
		Console:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer closeLog()

	if used != "" {
		logger.Debug("Loaded config", "path", used)
	}

	controller, err := services.NewPackController(cfg, logger)
	if err != nil {
		return err
	}
	defer controller.Close()

	report, runErr := controller.Build(cmd.Context(), services.BuildRequest{
		SourceDir: sourceDir,
		Name:      name,
		Toggles:   toggles,
		LogPath:   logPath,
	})

	fmt.Fprint(cmd.OutOrStdout(), components.ReportView(report))
	return runErr
}
