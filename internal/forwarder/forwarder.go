// internal/forwarder/forwarder.go
package forwarder

import (
	"context"

	"go.uber.org/zap"

	"github.com/ThourayaBchir/elb-lambda-axiom/internal/models"
)

// DefaultBatchSize is the number of records submitted per sink call.
const DefaultBatchSize = 50

// Sink accepts one batch of records per call.
type Sink interface {
	Send(ctx context.Context, batch []models.Record) error
}

// BatchOutcome records the result of one batch submission.
type BatchOutcome struct {
	Batch   int   // zero-based batch index
	Records int   // records carried by this batch
	Err     error // nil on success
}

// Result summarizes one forwarding run. Total counts every record handed to
// Forward, whether or not its batch succeeded.
type Result struct {
	Total    int
	Outcomes []BatchOutcome
}

// Failed returns the number of failed batches.
func (r Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Forwarder partitions records into contiguous fixed-size batches and submits
// each batch to the sink exactly once, in source order. No retry and no
// backoff; retry policy belongs to the caller.
type Forwarder struct {
	sink      Sink
	batchSize int
	log       *zap.Logger
}

// New creates a Forwarder. A non-positive batchSize falls back to
// DefaultBatchSize, a nil logger to a no-op logger.
func New(sink Sink, batchSize int, log *zap.Logger) *Forwarder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Forwarder{sink: sink, batchSize: batchSize, log: log}
}

// Forward submits all records. A rejected batch is recorded and logged, and
// later batches are still attempted; partial delivery is visible in the
// outcome list, never swallowed.
func (f *Forwarder) Forward(ctx context.Context, records []models.Record) Result {
	res := Result{Total: len(records)}

	for i := 0; i < len(records); i += f.batchSize {
		end := i + f.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]

		outcome := BatchOutcome{Batch: len(res.Outcomes), Records: len(batch)}
		if err := f.sink.Send(ctx, batch); err != nil {
			outcome.Err = err
			f.log.Warn("batch submission failed",
				zap.Int("batch", outcome.Batch),
				zap.Int("records", outcome.Records),
				zap.Error(err))
		} else {
			f.log.Debug("batch submitted",
				zap.Int("batch", outcome.Batch),
				zap.Int("records", outcome.Records))
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}

	return res
}
