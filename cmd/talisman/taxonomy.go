package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/talisman/internal/presentation/graph"
	"github.com/aretw0/talisman/pkg/taxonomy"
	"github.com/spf13/cobra"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the concern taxonomy",
	Long: `Prints the concern tree offered by the dialogue: category, topic, detail and options.

With --mermaid the tree is printed as a Mermaid flowchart. Adding --session highlights
the path that session selected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tx := taxonomy.Default()
		if cfg.Taxonomy != "" {
			loaded, err := taxonomy.Load(cfg.Taxonomy)
			if err != nil {
				return err
			}
			tx = loaded
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tx)
		}

		if asMermaid, _ := cmd.Flags().GetBool("mermaid"); asMermaid {
			overlay, err := sessionOverlay(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(out, graph.GenerateMermaid(tx, overlay))
			return nil
		}

		for _, c := range tx.Categories {
			fmt.Fprintln(out, c.Name)
			for _, t := range c.Topics {
				fmt.Fprintf(out, "  %s\n", t.Name)
				for _, d := range t.Details {
					fmt.Fprintf(out, "    %s\n", d.Name)
					for _, o := range d.Options {
						fmt.Fprintf(out, "      - %s\n", o)
					}
				}
			}
		}
		return nil
	},
}

func sessionOverlay(cmd *cobra.Command) (*graph.GraphOverlay, error) {
	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		return nil, nil
	}
	app, closeApp, err := openApp()
	if err != nil {
		return nil, err
	}
	defer closeApp()

	snap, err := app.Sessions.Inspect(cmd.Context(), sessionID)
	if err != nil {
		return nil, fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}
	return &graph.GraphOverlay{
		Path:     snap.State.Path,
		FreeText: snap.State.FreeText != "",
	}, nil
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.Flags().Bool("json", false, "Print the taxonomy as JSON")
	taxonomyCmd.Flags().Bool("mermaid", false, "Print the taxonomy as a Mermaid flowchart")
	taxonomyCmd.Flags().StringP("session", "s", "", "Highlight the path selected by this session (with --mermaid)")
}
