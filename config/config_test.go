package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cropguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "input", cfg.Model.InputOp)
	assert.Equal(t, float32(1), cfg.Preprocess.Scale)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(write(t, `
host: 0.0.0.0:9000
log_level: debug
model:
  location: gs://models/crops.pb
  labels: gs://models/crops.txt
preprocess:
  mean: 117
  max_pixels: 1000000
top_k: 3
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Host)
	assert.Equal(t, "gs://models/crops.pb", cfg.Model.Location)
	assert.Equal(t, "gs://models/crops.txt", cfg.Model.Labels)
	assert.Equal(t, "output", cfg.Model.OutputOp, "unset keys keep defaults")
	assert.Equal(t, float32(117), cfg.Preprocess.Mean)
	assert.Equal(t, float32(1), cfg.Preprocess.Scale)
	assert.Equal(t, int64(1000000), cfg.Preprocess.MaxPixels)
	assert.Equal(t, 3, cfg.TopK)
}

func TestLoadInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"no port":     "host: localhost\n",
		"zero scale":  "preprocess:\n  scale: 0\n",
		"no pixels":   "preprocess:\n  max_pixels: 0\n",
		"bad level":   "log_level: loud\n",
		"negative k":  "top_k: -1\n",
		"no input op": "model:\n  input_op: \"\"\n",
		"not yaml":    "host: [",
	} {
		_, err := Load(write(t, body))
		assert.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
