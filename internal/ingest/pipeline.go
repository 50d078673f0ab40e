// Package ingest drives the scan-extract-persist pipeline over one chat
// export.
//
// The pipeline streams messages through the constant-memory scanner,
// converts every auction embed it can, and writes accepted records to
// the store in fixed-size batches. Individual bad records and failed
// batches are logged and dropped; the run continues past both.
package ingest

import (
	"context"
	"io"

	"bidsage/internal/extract"
	"bidsage/internal/store"
	"bidsage/internal/stream"

	"go.uber.org/zap"
)

// DefaultBatchSize is the number of records per storage transaction.
const DefaultBatchSize = 500

// Options configures one pipeline run.
type Options struct {
	BatchSize int
	// ProgressFn, when set, is called after every scanned message with
	// the running message and accepted-record counts.
	ProgressFn func(messagesScanned, recordsAccepted int)
}

// Result summarizes one pipeline run.
type Result struct {
	MessagesScanned  int
	EmbedsSeen       int
	RecordsAccepted  int
	BatchesCommitted int
	BatchesFailed    int
	FragmentsSkipped int
}

// Pipeline wires the scanner and extractor to the store.
type Pipeline struct {
	store     store.Store
	extractor *extract.Extractor
	logger    *zap.Logger
}

// NewPipeline returns a Pipeline writing to s.
func NewPipeline(s store.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:     s,
		extractor: extract.NewExtractor(logger),
		logger:    logger,
	}
}

// Run scans r to exhaustion. A batch that fails to commit is discarded
// and counted; previously committed batches are untouched. The final
// partial batch is always flushed. Re-running over the same input is
// safe: records upsert by auction id.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	scanner := stream.NewScanner(r, stream.WithLogger(p.logger))
	result := &Result{}
	batch := make([]*store.SaleRecord, 0, opts.BatchSize)

	for {
		if err := ctx.Err(); err != nil {
			// Stop between messages; committed batches stay intact.
			result.FragmentsSkipped = scanner.Skipped()
			return result, err
		}

		var msg extract.Message
		if err := scanner.Next(&msg); err != nil {
			if err == io.EOF {
				break
			}
			result.FragmentsSkipped = scanner.Skipped()
			return result, err
		}

		result.MessagesScanned++
		for _, raw := range msg.Embeds {
			result.EmbedsSeen++
			rec := p.extractor.ExtractSale(raw)
			if rec == nil {
				continue
			}
			batch = append(batch, rec)
			result.RecordsAccepted++

			if len(batch) >= opts.BatchSize {
				p.flush(ctx, batch, result)
				batch = batch[:0]
			}
		}

		if opts.ProgressFn != nil {
			opts.ProgressFn(result.MessagesScanned, result.RecordsAccepted)
		}
	}

	if len(batch) > 0 {
		p.flush(ctx, batch, result)
	}

	result.FragmentsSkipped = scanner.Skipped()
	return result, nil
}

// flush commits one batch. On failure the batch is dropped: accepted
// counts are rolled back so the result reflects persisted records only.
func (p *Pipeline) flush(ctx context.Context, batch []*store.SaleRecord, result *Result) {
	if err := p.store.UpsertSales(ctx, batch); err != nil {
		p.logger.Error("batch upsert failed, discarding batch",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		result.BatchesFailed++
		result.RecordsAccepted -= len(batch)
		return
	}
	result.BatchesCommitted++
}
