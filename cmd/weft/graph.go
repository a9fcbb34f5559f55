package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wefthq/weft/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the workflow DAG, with the current session state overlaid unless --plain is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		eng, def, err := loadDefinition(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		var overlay *graph.Overlay
		if plain, _ := cmd.Flags().GetBool("plain"); !plain {
			ctx := cmd.Context()
			readiness, err := eng.Readiness(ctx, def)
			if err != nil {
				fmt.Printf("Error computing readiness: %v\n", err)
				os.Exit(1)
			}
			pos, err := eng.Position(ctx, def)
			if err != nil {
				fmt.Printf("Error computing position: %v\n", err)
				os.Exit(1)
			}
			overlay = graph.OverlayFromReadiness(readiness, pos)
		}

		fmt.Print(graph.GenerateMermaid(def, overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("plain", false, "Topology only, no session state overlay")
}
