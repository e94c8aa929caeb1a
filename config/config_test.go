package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"spiraldemo/ml"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 100, c.Spiral.Samples)
	assert.Equal(t, 3, c.Spiral.Classes)
	assert.Nil(t, c.Spiral.Seed)
	assert.Equal(t, ml.DefaultProbabilities, c.Evaluation.Probabilities)
	assert.Equal(t, ml.DefaultTargets, c.EvaluationTargets())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
http:
  port: 9090
  timeout: 5s
spiral:
  samples: 10
  seed: 42
evaluation:
  one_hot_targets:
    - [1, 0, 0]
    - [0, 1, 0]
    - [0, 1, 0]
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Http.Port)
	assert.Equal(t, 5*time.Second, c.Http.Timeout)

	sc := c.SpiralConfig()
	assert.Equal(t, 10, sc.Samples)
	assert.Equal(t, 3, sc.Classes)
	require.NotNil(t, sc.Seed)
	assert.Equal(t, int64(42), *sc.Seed)

	targets := c.EvaluationTargets()
	assert.True(t, targets.IsOneHot())
	labels, err := targets.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, labels)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"classes":     "spiral:\n  classes: 0\n",
		"port":        "http:\n  port: 70000\n",
		"cache size":  "spiral:\n  cache_size: 0\n",
		"evaluation":  "evaluation:\n  targets: [0, 1]\n",
		"bad yaml":    "spiral: [\n",
		"noise":       "spiral:\n  noise: -1\n",
		"empty probs": "evaluation:\n  probabilities: []\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, body)
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestWatchAppliesReloadedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "spiral:\n  samples: 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, zap.NewNop(), func(c *Config) {
			select {
			case applied <- c:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "spiral:\n  samples: 20\n")

	// A write may surface as several events, the first seeing a truncated file.
	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-applied:
			reloaded = c.Spiral.Samples == 20
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestRestartRequired(t *testing.T) {
	old := Default()
	assert.Empty(t, RestartRequired(old, Default()))

	next := Default()
	next.Spiral.Samples = 20
	next.Evaluation.Targets = []int{0, 0, 0}
	assert.Empty(t, RestartRequired(old, next), "spiral and evaluation defaults reload in place")

	next.Http.Port = 9000
	next.Http.AllowedOrigins = []string{"http://localhost"}
	next.Database.Path = "other.db"
	next.Log.Level = "debug"
	next.Spiral.CacheSize = 8
	assert.Equal(t,
		[]string{"http.port", "http.allowed_origins", "database.path", "log", "spiral.cache_size"},
		RestartRequired(old, next))
}
