// internal/forwarder/axiom_test.go
package forwarder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ThourayaBchir/elb-lambda-axiom/internal/models"
)

func TestAxiomSinkSend(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewAxiomSink(srv.URL, "elb-logs", "secret-token", srv.Client())
	batch := []models.Record{
		&models.ParsedRecord{Time: "2023-01-15T10:30:00.123456Z", Type: "https"},
		&models.FailureRecord{Time: "", Error: "failed to parse log line: missing field type"},
	}
	require.NoError(t, sink.Send(context.Background(), batch))

	require.Equal(t, "/v1/datasets/elb-logs/ingest", gotPath)
	require.Equal(t, "Bearer secret-token", gotAuth)
	require.Equal(t, "application/json", gotContentType)

	// One JSON array per call; failure records ride along with parsed ones.
	var payload []map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Len(t, payload, 2)
	require.Equal(t, "2023-01-15T10:30:00.123456Z", payload[0]["_time"])
	require.Equal(t, "", payload[1]["_time"])
	require.Contains(t, payload[1]["error"], "failed to parse log line")
}

func TestAxiomSinkRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such dataset", http.StatusNotFound)
	}))
	defer srv.Close()

	sink := NewAxiomSink(srv.URL, "missing", "secret-token", srv.Client())
	err := sink.Send(context.Background(), makeRecords(1))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestForwardThroughAxiomSink(t *testing.T) {
	calls := 0
	var sizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var payload []json.RawMessage
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		sizes = append(sizes, len(payload))
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewAxiomSink(srv.URL, "elb-logs", "secret-token", srv.Client())
	res := New(sink, 50, zap.NewNop()).Forward(context.Background(), makeRecords(120))

	require.Equal(t, []int{50, 50, 20}, sizes)
	require.Equal(t, 120, res.Total)
	require.Equal(t, 1, res.Failed())

	var statusErr *StatusError
	require.ErrorAs(t, res.Outcomes[1].Err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)
}
