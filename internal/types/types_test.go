package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBotIdentity(t *testing.T) {
	// md5("alice")
	assert.Equal(t, BotIdentity("6384e2b2184bcbf58eccf10ca7a6563c"), NewBotIdentity("alice"))
	assert.Equal(t, NewBotIdentity("alice"), NewBotIdentity(" alice\n"))
	assert.NotContains(t, NewBotIdentity("alice").String(), "alice")
}

func TestParsePocRequest(t *testing.T) {
	req, err := ParsePocRequest("zlib--fuzz_inflate--crash-abc123")
	require.NoError(t, err)
	assert.Equal(t, "zlib", req.Project)
	assert.Equal(t, "fuzz_inflate", req.Fuzzer)
	assert.Equal(t, "crash-abc123", req.Poc)
	assert.Equal(t, "zlib--fuzz_inflate--crash-abc123", req.Name())

	for _, bad := range []string{"", "zlib", "zlib--fuzz", "zlib----crash", "a--b--c--d"} {
		_, err := ParsePocRequest(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte("plain"),
		{0xff, 0xfe, 0x00, 0x80, 0xc3, 0x28},
		make([]byte, 4096),
	}
	for _, in := range inputs {
		out, err := DecodePayload(EncodePayload(in))
		require.NoError(t, err)
		assert.Equal(t, len(in), len(out))
		assert.Equal(t, string(in), string(out))
	}

	_, err := DecodePayload("!!not base64!!")
	assert.Error(t, err)
}

func TestCampaignReportWireFormat(t *testing.T) {
	report := CampaignReport{
		BotID:   "abc",
		Project: "zlib",
		Fuzzer:  "fuzz_inflate",
		Crashes: [][]byte{[]byte("A"), {0xff}},
	}
	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "abc", body["botid"])
	assert.Equal(t, "zlib", body["project"])
	assert.Equal(t, "fuzz_inflate", body["fuzzer"])
	assert.EqualValues(t, 2, body["crash_count"])
	assert.Equal(t, "QQ==", body["crash-0"])
	assert.Equal(t, "/w==", body["crash-1"])
	assert.NotContains(t, body, "crash-2")
}

func TestSessionConfigStale(t *testing.T) {
	synced := SessionConfig{Source: SourceSynced}
	assert.Equal(t, SourcePrevious, synced.Stale().Source)
	def := SessionConfig{Source: SourceDefault}
	assert.Equal(t, SourceDefault, def.Stale().Source)
}

func TestDurationFromSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want time.Duration
		ok   bool
	}{
		{3600, time.Hour, true},
		{1.5, 1500 * time.Millisecond, true},
		{1, time.Second, true},
		{0.5, 0, false},
		{0, 0, false},
		{-3, 0, false},
		{math.NaN(), 0, false},
		{1e300, MaxConfigDuration, true},
		{math.Inf(1), MaxConfigDuration, true},
	}
	for _, tt := range tests {
		got, ok := DurationFromSeconds(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}
