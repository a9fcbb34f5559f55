package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wefthq/weft/internal/presentation/tui"
	"github.com/wefthq/weft/pkg/domain"
)

// showCmd renders a single stage: its instructions for a human operator,
// plus the latest envelope if one was materialized.
var showCmd = &cobra.Command{
	Use:   "show <stage>",
	Short: "Show a stage's instructions and latest artifact",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, def, err := loadDefinition(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		node := def.Node(args[0])
		if node == nil {
			fmt.Printf("Unknown stage %q. Stages: %s\n", args[0], strings.Join(def.Order, ", "))
			os.Exit(1)
		}

		render := tui.NewRenderer()
		title := node.Name
		if title == "" {
			title = node.ID
		}
		header := "# " + title + "\n"
		if node.Instructions != "" {
			header += "\n" + node.Instructions + "\n"
		}
		if out, err := render(header); err == nil {
			fmt.Print(out)
		} else {
			fmt.Print(header)
		}

		env, err := eng.LatestEnvelope(cmd.Context(), def, node.ID)
		if errors.Is(err, domain.ErrNoEnvelope) {
			fmt.Println("\n(no artifact materialized yet)")
			return
		}
		if err != nil {
			fmt.Printf("Error reading envelope: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nLatest artifact (%s):\n", env.Timestamp.Format("2006-01-02 15:04:05 MST"))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(env.Content)
		fmt.Printf("fingerprint: %s\n", env.Fingerprint)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
