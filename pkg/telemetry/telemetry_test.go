package telemetry

import (
	"testing"

	"github.com/daehee87/fuzzing-bot/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestTelemetryDisabledWithoutEndpoint(t *testing.T) {
	telem, err := NewTelemetry(TelemetryParams{
		Lifecyle: fxtest.NewLifecycle(t),
		Config:   &config.AppConfig{ServiceName: "fuzzbot"},
	})
	require.NoError(t, err)
	assert.Nil(t, telem)
}

func TestActionCategoryNames(t *testing.T) {
	assert.Equal(t, "building", Building.String())
	assert.Equal(t, "verifying", Verifying.String())
	assert.Equal(t, "unknown", ActionCategory(42).String())
}
