package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bidsage/internal/config"
	"bidsage/internal/ingest"

	"github.com/schollz/progressbar/v2"
)

func runIngest(args []string) error {
	var cf commonFlags
	var inputPath, batchSize string
	showProgress := false

	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--config"); ok {
			cf.configPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--db"); ok {
			cf.dbPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--log-level"); ok {
			cf.logLevel = v
			continue
		}
		if v, ok := takeValue(args, &i, "--batch-size"); ok {
			batchSize = v
			continue
		}
		if v, ok := takeValue(args, &i, "-b"); ok {
			batchSize = v
			continue
		}
		switch args[i] {
		case "--progress", "-p":
			showProgress = true
		default:
			if inputPath != "" {
				return fmt.Errorf("unexpected argument: %s", args[i])
			}
			inputPath = args[i]
		}
	}

	if inputPath == "" {
		return fmt.Errorf("usage: bidsage ingest <chat.json> [--db path] [--batch-size n] [--progress]")
	}

	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:   cf.configPath,
		CLIDBPath:    cf.dbPath,
		CLILogLevel:  cf.logLevel,
		CLIBatchSize: batchSize,
	})
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel.Value)
	if err != nil {
		return err
	}
	defer logger.Sync()

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Interrupt stops between messages; committed batches survive.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var reader io.Reader = f
	if showProgress {
		info, err := f.Stat()
		if err == nil && info.Size() > 0 {
			bar := progressbar.New(int(info.Size()))
			reader = &progressReader{r: f, bar: bar}
			defer func() {
				bar.Finish()
				fmt.Fprintln(os.Stderr)
			}()
		}
	}

	fmt.Printf("Ingesting %s into %s...\n", inputPath, cfg.DBPath.Value)

	pipeline := ingest.NewPipeline(st, logger)
	result, err := pipeline.Run(ctx, reader, ingest.Options{
		BatchSize: cfg.BatchSizeValue(),
	})
	if result != nil {
		printIngestResult(result)
	}
	if err != nil {
		return fmt.Errorf("ingest stopped early: %w", err)
	}
	return nil
}

func printIngestResult(r *ingest.Result) {
	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Messages scanned:   %d\n", r.MessagesScanned)
	fmt.Printf("  Embeds seen:        %d\n", r.EmbedsSeen)
	fmt.Printf("  Sales persisted:    %d\n", r.RecordsAccepted)
	fmt.Printf("  Batches committed:  %d\n", r.BatchesCommitted)
	if r.BatchesFailed > 0 {
		fmt.Printf("  Batches failed:     %d\n", r.BatchesFailed)
	}
	if r.FragmentsSkipped > 0 {
		fmt.Printf("  Fragments skipped:  %d\n", r.FragmentsSkipped)
	}
}

// progressReader advances the byte-progress bar as the pipeline reads.
type progressReader struct {
	r   io.Reader
	bar *progressbar.ProgressBar
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		_ = pr.bar.Add(n)
	}
	return n, err
}
