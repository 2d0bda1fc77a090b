// internal/models/records_test.go
package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsedRecordWireShape(t *testing.T) {
	rec := &ParsedRecord{
		Time:   "2023-01-15T10:30:00.123456Z",
		Type:   "https",
		Client: "10.0.0.1",
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	// Flat object: _time at the top level, every other attribute a string
	// sibling, no nesting.
	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	require.Equal(t, "2023-01-15T10:30:00.123456Z", flat["_time"])
	require.Equal(t, "https", flat["type"])
	for name, value := range flat {
		_, isString := value.(string)
		require.True(t, isString, "field %s is not a flat string", name)
	}
}

func TestFailureRecordWireShape(t *testing.T) {
	rec := &FailureRecord{Error: "failed to parse log line: missing field type"}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var flat map[string]string
	require.NoError(t, json.Unmarshal(raw, &flat))
	require.Equal(t, "", flat["_time"])
	require.Contains(t, flat["error"], "failed to parse log line")
}

func TestNormalizeSentinels(t *testing.T) {
	rec := &ParsedRecord{
		Time:       Sentinel,
		Type:       "https",
		Target:     Sentinel,
		TargetPort: "",
		SSLCipher:  Sentinel,
		UserAgent:  "curl/8.0 -",
	}
	rec.NormalizeSentinels()

	require.Equal(t, "", rec.Time)
	require.Equal(t, "https", rec.Type)
	require.Equal(t, "", rec.Target)
	require.Equal(t, "", rec.SSLCipher)
	require.Equal(t, "curl/8.0 -", rec.UserAgent, "only exact sentinel values are cleared")
}
