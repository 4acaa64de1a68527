package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	rootCmd    *cobra.Command
	configPath string
	verbose    bool
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "jartranslate",
		Short:         "Translate the user-facing strings inside a JAR",
		Long:          "jartranslate extracts display strings from the class files of a JAR, translates them with an AI backend and writes a rebuilt archive.",
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with model, api_key, target_lang and batching settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write JSON log lines to stderr")

	initTranslateCmd()
	initPreviewCmd()
	initApplyCmd()
	initCheckCmd()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
