package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterOtelEnv(t *testing.T) {
	env := []string{"PATH=/bin", "OTEL_EXPORTER_OTLP_ENDPOINT=x", "OTLP_HEADERS=y", "HOME=/root"}
	assert.Equal(t, []string{"PATH=/bin", "HOME=/root"}, filterOtelEnv(env))
}

func TestPythonMajor(t *testing.T) {
	major, err := pythonMajor("Python 3.12.1")
	assert.NoError(t, err)
	assert.Equal(t, "3", major)
}
