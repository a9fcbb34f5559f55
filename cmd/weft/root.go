package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wefthq/weft"
	"github.com/wefthq/weft/internal/adapters/file"
	"github.com/wefthq/weft/internal/logging"
	"github.com/wefthq/weft/pkg/domain"
)

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Weft is a manifest-driven workflow engine",
	Long: `Weft compiles a stage manifest into a DAG, tracks which stages are
done against a session tree of provenance-chained artifacts, and answers
"what's done, what's next" for humans and agents alike.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("manifest", "m", "workflow.yaml", "Path to the workflow manifest")
	rootCmd.PersistentFlags().String("script", "", "Optional script overlay applied on top of the manifest")
	rootCmd.PersistentFlags().String("dir", ".weft/session", "Directory holding the session artifact tree")
	rootCmd.PersistentFlags().String("session", "default", "Session name (scopes write locks)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
}

// loadDefinition parses the manifest, plus the script overlay if one was
// given, honoring the persistent flags.
func loadDefinition(cmd *cobra.Command) (*weft.Engine, *domain.GraphDefinition, error) {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	scriptPath, _ := cmd.Flags().GetString("script")
	dir, _ := cmd.Flags().GetString("dir")
	sessionName, _ := cmd.Flags().GetString("session")
	logLevel, _ := cmd.Flags().GetString("log-level")

	eng, err := weft.New(file.New(dir),
		weft.WithLogger(logging.New(logging.ParseLevel(logLevel))),
		weft.WithSessionName(sessionName),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init engine: %w", err)
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read manifest: %w", err)
	}
	def, err := eng.ParseManifest(data)
	if err != nil {
		return nil, nil, err
	}

	if scriptPath != "" {
		scriptData, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot read script: %w", err)
		}
		def, err = eng.ParseScript(scriptData, def)
		if err != nil {
			return nil, nil, err
		}
	}
	return eng, def, nil
}
