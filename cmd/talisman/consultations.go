package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/aretw0/talisman/pkg/domain"
	"github.com/spf13/cobra"
)

var consultationsCmd = &cobra.Command{
	Use:     "consultations",
	Aliases: []string{"history"},
	Short:   "Browse saved consultations",
}

var consultationsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved consultations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeApp, err := openApp()
		if err != nil {
			return err
		}
		defer closeApp()

		list, err := app.Engine.Consultations().ListConsultations(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing consultations: %w", err)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No consultations saved yet.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
		for _, c := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Title)
		}
		return tw.Flush()
	},
}

var consultationsShowCmd = &cobra.Command{
	Use:   "show <consultation-id>",
	Short: "Print a saved consultation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeApp, err := openApp()
		if err != nil {
			return err
		}
		defer closeApp()

		c, err := app.Engine.Consultations().GetConsultation(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading consultation '%s': %w", args[0], err)
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			data, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n\n", c.Title)
		for _, t := range c.Transcript {
			prefix := ""
			if t.Sender == domain.SenderUser {
				prefix = "› "
			}
			fmt.Fprintf(out, "%s%s\n", prefix, t.Text)
			if reaction, ok := c.Reactions[t.ID]; ok {
				fmt.Fprintf(out, "  (%s)\n", reaction)
			}
		}
		if c.ArtifactRef != "" {
			fmt.Fprintf(out, "\n부적: %s\n", c.ArtifactRef)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consultationsCmd)
	consultationsCmd.AddCommand(consultationsLsCmd)
	consultationsCmd.AddCommand(consultationsShowCmd)
	consultationsShowCmd.Flags().Bool("json", false, "Print the raw JSON record")
}
