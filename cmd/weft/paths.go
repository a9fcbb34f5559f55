package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// pathsCmd prints the session-relative artifact path of every stage, in
// declaration order. Useful for scripting against the session tree.
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the derived session path of every stage",
	Run: func(cmd *cobra.Command, args []string) {
		eng, def, err := loadDefinition(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		paths := eng.ResolvePaths(def)
		for _, id := range def.Order {
			fmt.Printf("%-24s %s\n", id, paths[id].ArtifactFile)
		}
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
