package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jar-translator/internal/scheduler"
)

var applyOut string

func initApplyCmd() {
	applyCmd := &cobra.Command{
		Use:   "apply <jar> <selection.json>",
		Short: "Rebuild a JAR from reviewed translations",
		Long:  "apply reads either an {original: translated} object or the pair list written by translate --review and burns it into the archive.",
		Args:  cobra.ExactArgs(2),
		RunE:  runApply,
	}
	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "", "output path (default translated_<name> next to the input)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	defer quietLogs()()

	selection, err := readSelection(args[1])
	if err != nil {
		return err
	}
	if len(selection) == 0 {
		return fmt.Errorf("%s selects no translations", args[1])
	}

	job, err := openJob(cmd, args[0])
	if err != nil {
		return err
	}
	defer job.Close()

	out := outputPath(args[0], applyOut)
	stats, err := writeArchive(cmd, job, selection, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d strings replaced in %d files\n", out, stats.StringsReplaced, stats.FilesRewritten)
	return nil
}

// readSelection accepts a plain object or a translate --review pair list.
func readSelection(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var selection map[string]string
	if err := json.Unmarshal(data, &selection); err == nil {
		return selection, nil
	}
	var pairs []scheduler.Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parsing %s: expected an object or a pair list: %w", path, err)
	}
	selection = make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.Original != "" {
			selection[p.Original] = p.Translated
		}
	}
	return selection, nil
}
