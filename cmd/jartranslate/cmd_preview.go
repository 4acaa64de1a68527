package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var previewJSON bool

func initPreviewCmd() {
	previewCmd := &cobra.Command{
		Use:   "preview <jar>",
		Short: "List the strings that would be sent for translation",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "print a JSON array instead of one string per line")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	defer quietLogs()()

	job, err := openJob(cmd, args[0])
	if err != nil {
		return err
	}
	defer job.Close()

	candidates := job.Candidates()
	if previewJSON {
		if candidates == nil {
			candidates = []string{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(candidates)
	}
	for _, s := range candidates {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}
