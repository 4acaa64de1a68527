package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jar-translator/internal/classifier"
)

func initCheckCmd() {
	checkCmd := &cobra.Command{
		Use:   "check <text>...",
		Short: "Show whether each string would be translated and which rule decided",
		Args:  cobra.MinimumNArgs(1),
		Run:   runCheck,
	}
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	for _, text := range args {
		v := classifier.Check(text)
		if v.Translate {
			fmt.Fprintf(cmd.OutOrStdout(), "translate\t%q\n", text)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "keep (%s)\t%q\n", v.Rule, text)
	}
}
