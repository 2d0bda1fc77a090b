// internal/forwarder/forwarder_test.go
package forwarder

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ThourayaBchir/elb-lambda-axiom/internal/models"
)

// recordingSink captures every batch and fails the calls listed in failOn.
type recordingSink struct {
	batches [][]models.Record
	failOn  map[int]error
}

func (s *recordingSink) Send(_ context.Context, batch []models.Record) error {
	call := len(s.batches)
	s.batches = append(s.batches, batch)
	if err, ok := s.failOn[call]; ok {
		return err
	}
	return nil
}

func makeRecords(n int) []models.Record {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = &models.ParsedRecord{TID: strconv.Itoa(i)}
	}
	return records
}

func TestForwardBatching(t *testing.T) {
	sink := &recordingSink{}
	res := New(sink, 50, zap.NewNop()).Forward(context.Background(), makeRecords(120))

	require.Equal(t, 120, res.Total)
	require.Len(t, sink.batches, 3)
	require.Len(t, sink.batches[0], 50)
	require.Len(t, sink.batches[1], 50)
	require.Len(t, sink.batches[2], 20)
	require.Len(t, res.Outcomes, 3)
	require.Equal(t, 0, res.Failed())

	// Source order is preserved within and across batches.
	i := 0
	for _, batch := range sink.batches {
		for _, r := range batch {
			require.Equal(t, strconv.Itoa(i), r.(*models.ParsedRecord).TID)
			i++
		}
	}
}

func TestForwardContinuesAfterFailure(t *testing.T) {
	rejected := errors.New("rejected")
	sink := &recordingSink{failOn: map[int]error{1: rejected}}
	res := New(sink, 50, zap.NewNop()).Forward(context.Background(), makeRecords(120))

	require.Len(t, sink.batches, 3, "a failed batch must not halt later batches")
	require.Len(t, res.Outcomes, 3)
	require.NoError(t, res.Outcomes[0].Err)
	require.ErrorIs(t, res.Outcomes[1].Err, rejected)
	require.NoError(t, res.Outcomes[2].Err)
	require.Equal(t, 1, res.Failed())
	require.Equal(t, 120, res.Total, "total counts records regardless of outcomes")
}

func TestForwardDefaults(t *testing.T) {
	sink := &recordingSink{}
	res := New(sink, 0, nil).Forward(context.Background(), makeRecords(60))

	require.Len(t, sink.batches, 2)
	require.Len(t, sink.batches[0], DefaultBatchSize)
	require.Len(t, sink.batches[1], 10)
	require.Equal(t, 60, res.Total)
}

func TestForwardEmpty(t *testing.T) {
	sink := &recordingSink{}
	res := New(sink, 50, zap.NewNop()).Forward(context.Background(), nil)

	require.Empty(t, sink.batches)
	require.Empty(t, res.Outcomes)
	require.Equal(t, 0, res.Total)
}
