package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	mode, err := parseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, runMode{}, mode)

	mode, err = parseArgs([]string{"verify", "zlib--fuzz_inflate--crash-1"})
	require.NoError(t, err)
	assert.Equal(t, "zlib--fuzz_inflate--crash-1", mode.VerifyID)

	_, err = parseArgs([]string{"verify"})
	assert.Error(t, err)

	_, err = parseArgs([]string{"bogus"})
	assert.Error(t, err)
}

func TestParseArgsRejectsMalformedDirective(t *testing.T) {
	for _, id := range []string{"zlib", "zlib--fuzz_inflate", "zlib----crash-1", "a--b--c--d"} {
		_, err := parseArgs([]string{"verify", id})
		assert.ErrorContains(t, err, "invalid poc identifier", id)
	}
}
