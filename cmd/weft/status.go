package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wefthq/weft/internal/presentation/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the workflow stands",
	Long:  `Computes readiness against the session tree and prints what's done, what's next and what went stale.`,
	Run: func(cmd *cobra.Command, args []string) {
		eng, def, err := loadDefinition(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ctx := cmd.Context()
		pos, err := eng.Position(ctx, def)
		if err != nil {
			fmt.Printf("Error computing position: %v\n", err)
			os.Exit(1)
		}
		readiness, err := eng.Readiness(ctx, def)
		if err != nil {
			fmt.Printf("Error computing readiness: %v\n", err)
			os.Exit(1)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			out := struct {
				Position  any `json:"position"`
				Readiness any `json:"readiness"`
			}{pos, readiness}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(out)
			return
		}

		fmt.Print(tui.StatusSummary(pos, readiness))

		// Show the operator what the next stage asks for, right here.
		if pos.CurrentStage != "" {
			if node := def.Node(pos.CurrentStage); node != nil && node.Instructions != "" {
				render := tui.NewRenderer()
				if out, err := render(node.Instructions); err == nil {
					fmt.Print("\n" + out)
				} else {
					fmt.Print("\n" + node.Instructions + "\n")
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "Emit machine-readable JSON instead of the summary")
}
