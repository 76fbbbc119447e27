package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cognicore/deid/internal/corpus"
	"github.com/cognicore/deid/pkg/deid"
)

var (
	redactHTML   bool
	redactSource string
	redactSpans  bool

	batchOutput  string
	batchWorkers int
)

var redactCmd = &cobra.Command{
	Use:   "redact [file]",
	Short: "Redact a document (stdin when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  redact,
}

var batchCmd = &cobra.Command{
	Use:   "batch <input.jsonl>",
	Short: "Redact a JSONL batch of documents",
	Long: `Reads one {"id", "source", "text", "html"} object per line and writes one
{"id", "source", "redacted", "error"} object per line, in input order.`,
	Args: cobra.ExactArgs(1),
	RunE: batch,
}

func init() {
	redactCmd.Flags().BoolVar(&redactHTML, "html", false, "treat input as HTML and redact its visible text")
	redactCmd.Flags().StringVar(&redactSource, "source", "", "source name stored with the record (defaults to the file name)")
	redactCmd.Flags().BoolVar(&redactSpans, "spans", false, "print the replaced spans after the text")

	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "output file (default stdout)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "number of documents redacted concurrently")

	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(batchCmd)
}

func redact(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	var (
		data   []byte
		err    error
		source = redactSource
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if source == "" {
			source = args[0]
		}
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
		if source == "" {
			source = "stdin"
		}
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	engine, err := loadEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	var res deid.Result
	if redactHTML {
		res, err = engine.RedactHTML(ctx, source, string(data))
	} else {
		res, err = engine.Redact(ctx, source, string(data))
	}
	if err != nil && !res.FailSafe {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Redacted)
	if redactSpans {
		for _, s := range res.Spans {
			fmt.Fprintf(out, "%s\t%d-%d\t%s\n", s.Tag, s.Start, s.End, s.Label)
		}
	}
	// Fail-safe output is printed, but the run still reports the failure.
	return err
}

func batch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	items, err := corpus.LoadJSONL(args[0])
	if err != nil {
		return err
	}

	engine, err := loadEngine(ctx)
	if err != nil {
		return err
	}
	defer engine.Close()

	results := redactAll(ctx, engine, items, batchWorkers)

	out := cmd.OutOrStdout()
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", batchOutput, err)
		}
		defer f.Close()
		out = f
	}
	if err := corpus.WriteJSONL(out, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	log.Info().
		Int("documents", len(results)).
		Int("failed", failed).
		Msg("batch complete")
	return nil
}

// redactAll redacts items with a fixed number of workers. Results keep the
// input order; per-document failures are reported in Result.Error.
func redactAll(ctx context.Context, engine *deid.Deid, items []corpus.Item, workers int) []corpus.Result {
	if workers < 1 {
		workers = 1
	}

	results := make([]corpus.Result, len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = redactItem(ctx, engine, items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func redactItem(ctx context.Context, engine *deid.Deid, item corpus.Item) corpus.Result {
	var (
		res deid.Result
		err error
	)
	if item.HTML {
		res, err = engine.RedactHTML(ctx, item.Source, item.Text)
	} else {
		res, err = engine.Redact(ctx, item.Source, item.Text)
	}

	out := corpus.Result{ID: item.ID, Source: item.Source, Redacted: res.Redacted}
	if out.ID == "" {
		out.ID = res.ID
	}
	if err != nil {
		out.Error = err.Error()
		log.Warn().Str("id", out.ID).Err(err).Msg("document failed")
	}
	return out
}
