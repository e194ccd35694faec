package main

import (
	"os"

	"github.com/spf13/cobra"

	"codedoc/internal/config"
	"codedoc/internal/logging"
	"codedoc/internal/version"
)

var (
	repoFlag     string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "codedoc",
	Short: "codedoc - repository documentation generator",
	Long: `codedoc ingests a source repository, builds a typed component and
call graph across its languages, partitions the graph into a hierarchy of
modules with an LLM clustering step, and drives a recursive, tool-using
documentation agent bottom-up over the module tree.`,
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("codedoc version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository root to analyze (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, or error")
}

// resolveRepoRoot determines the repository root from CLI flag, env
// var, and working directory. Precedence: --repo > CODEDOC_REPO > cwd.
func resolveRepoRoot() (string, error) {
	root := repoFlag
	if root == "" {
		root = os.Getenv("CODEDOC_REPO")
	}
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = cwd
	}
	return root, nil
}

// newLogger builds the run's logger from config, letting the
// --log-level flag override the config file.
func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.LogLevel(level),
		Output: os.Stderr,
	})
}
