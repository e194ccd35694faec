package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codedoc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize the project configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .codedoc/config.toml into the repository",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repoRoot, err := resolveRepoRoot()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving repository root: %v\n", err)
			os.Exit(1)
		}
		cfg := config.DefaultConfig()
		if err := cfg.Save(repoRoot); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("wrote .codedoc/config.toml")
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		repoRoot, err := resolveRepoRoot()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving repository root: %v\n", err)
			os.Exit(1)
		}
		cfg, err := config.Load(repoRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
