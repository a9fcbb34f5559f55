package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the manifest (and script) for consistency",
	Long:  `Parses the manifest and optional script and reports every violation found: missing fields, duplicate ids, dangling references, invalid overrides.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, def, err := loadDefinition(cmd)
		if err != nil {
			fmt.Printf("Validation failed:\n%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Workflow %q is valid: %d stages, %d roots, %d terminals ✅\n",
			def.Header.Name, len(def.Order), len(def.Roots), len(def.Terminals))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
