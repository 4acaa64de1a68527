package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"jar-translator/internal/llm/provider"
	"jar-translator/internal/pipeline"
	"jar-translator/internal/scheduler"
)

var (
	translateFlags  options
	translateOut    string
	translateReview string
)

func initTranslateCmd() {
	translateCmd := &cobra.Command{
		Use:   "translate <jar>",
		Short: "Translate a JAR and write the rebuilt archive",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranslate,
	}

	def := defaultOptions()
	translateCmd.Flags().StringVarP(&translateOut, "out", "o", "", "output path (default translated_<name> next to the input)")
	translateCmd.Flags().StringVar(&translateReview, "review", "", "write the translation pairs to this JSON file instead of rebuilding")
	translateCmd.Flags().StringVar(&translateFlags.TargetLang, "lang", def.TargetLang, "target language code, e.g. zh_cn")
	translateCmd.Flags().StringVar(&translateFlags.Model, "model", def.Model, "AI backend: Deepseek, OpenAI, Claude or Gemini")
	translateCmd.Flags().StringVar(&translateFlags.APIKey, "api-key", "", "backend credential (or "+apiKeyEnv+")")
	translateCmd.Flags().IntVar(&translateFlags.BatchSize, "batch-size", def.BatchSize, "strings per backend call")
	translateCmd.Flags().IntVar(&translateFlags.Window, "window", def.Window, "batches in flight at once")
	translateCmd.Flags().DurationVar(&translateFlags.BatchTimeout, "batch-timeout", def.BatchTimeout, "deadline for one batch")
	translateCmd.Flags().DurationVar(&translateFlags.Timeout, "timeout", def.Timeout, "HTTP timeout for one backend call")

	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	defer quietLogs()()
	start := time.Now()

	fc, err := loadFileConfig(configPath)
	if err != nil {
		return err
	}
	opts, err := resolve(fc, translateFlags, cmd.Flags().Changed, os.Getenv)
	if err != nil {
		return err
	}
	if opts.APIKey == "" {
		return fmt.Errorf("an API key is required: pass --api-key, set api_key in --config or export %s", apiKeyEnv)
	}

	tr, err := provider.New(opts.Model, opts.APIKey, provider.Options{Timeout: opts.Timeout, Retries: 1})
	if err != nil {
		return err
	}
	defer tr.Close()

	job, err := openJob(cmd, args[0])
	if err != nil {
		return err
	}
	defer job.Close()

	candidates := job.Candidates()
	fmt.Fprintf(cmd.OutOrStdout(), "%d class files, %d candidate strings\n", job.Extracted().Files(), len(candidates))

	sched := &scheduler.Scheduler{
		BatchSize:    opts.BatchSize,
		Window:       opts.Window,
		BatchTimeout: opts.BatchTimeout,
	}
	res := runWithProgress(cmd, job, sched, tr, opts.TargetLang)
	if len(res.Failed) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d batches failed and kept their source text\n", len(res.Failed), res.TotalBatches)
	}

	if translateReview != "" {
		if err := writePairs(translateReview, res.Pairs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d pairs (%d changed) to %s\n", len(res.Pairs), res.ChangedCount(), translateReview)
		return nil
	}

	out := outputPath(args[0], translateOut)
	stats, err := writeArchive(cmd, job, res.Translations, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d strings replaced in %d files (%s)\n",
		out, stats.StringsReplaced, stats.FilesRewritten, time.Since(start).Round(time.Millisecond))
	return nil
}

// runWithProgress drives the scheduler and renders one bar for its batches.
func runWithProgress(cmd *cobra.Command, job *pipeline.Job, sched *scheduler.Scheduler, tr scheduler.Translator, lang string) *scheduler.Result {
	total := len(scheduler.Batches(job.Candidates(), sched.BatchSize))
	if total == 0 {
		return job.Translate(cmd.Context(), sched, tr, lang, nil)
	}

	progress := mpb.NewWithContext(cmd.Context(), mpb.WithWidth(60), mpb.WithOutput(cmd.ErrOrStderr()))
	bar := progress.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("[batches]", decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Counters(0, " | %d/%d"),
			decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 6}, decor.WCSyncSpace),
		),
	)

	var mu sync.Mutex
	res := job.Translate(cmd.Context(), sched, tr, lang, func(p scheduler.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if delta := int64(p.CompletedBatches) - bar.Current(); delta > 0 {
			bar.IncrInt64(delta)
		}
	})
	bar.SetTotal(int64(total), true)
	progress.Wait()
	return res
}

func openJob(cmd *cobra.Command, jarPath string) (*pipeline.Job, error) {
	f, err := os.Open(jarPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pipeline.Prepare(cmd.Context(), f, os.TempDir())
}

// writeArchive writes next to out and renames into place so a failed rebuild
// never leaves a truncated archive behind.
func writeArchive(cmd *cobra.Command, job *pipeline.Job, translations map[string]string, out string) (pipeline.ApplyStats, error) {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".jartranslate-*")
	if err != nil {
		return pipeline.ApplyStats{}, err
	}
	defer os.Remove(tmp.Name())

	stats, err := job.Apply(cmd.Context(), translations, tmp)
	if err != nil {
		tmp.Close()
		return pipeline.ApplyStats{}, err
	}
	if err := tmp.Close(); err != nil {
		return pipeline.ApplyStats{}, err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return pipeline.ApplyStats{}, err
	}
	for _, s := range stats.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "kept %s unchanged: %v\n", s.Name, s.Err)
	}
	return stats, nil
}

func writePairs(path string, pairs []scheduler.Pair) error {
	if pairs == nil {
		pairs = []scheduler.Pair{}
	}
	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func outputPath(input, out string) string {
	if out != "" {
		return out
	}
	return filepath.Join(filepath.Dir(input), "translated_"+filepath.Base(input))
}
