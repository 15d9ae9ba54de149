package configbinder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/switchprep/pkg/batch/support/util/configbinder"
)

type glidePathConfig struct {
	InputDir  string  `yaml:"input_dir"`
	Levels    []int   `yaml:"levels"`
	Target    float64 `yaml:"target"`
	Overwrite bool    `yaml:"overwrite"`
}

// TestBindProperties verifies weak typing and comma-separated list decoding.
func TestBindProperties(t *testing.T) {
	cfg := &glidePathConfig{}
	err := configbinder.BindProperties(map[string]string{
		"input_dir": "inputs_start",
		"levels":    "0,50,100",
		"target":    "200.5",
		"overwrite": "true",
	}, cfg)
	require.NoError(t, err)

	assert.Equal(t, "inputs_start", cfg.InputDir)
	assert.Equal(t, []int{0, 50, 100}, cfg.Levels)
	assert.Equal(t, 200.5, cfg.Target)
	assert.True(t, cfg.Overwrite)
}

func TestBindProperties_EmptyLeavesDefaults(t *testing.T) {
	cfg := &glidePathConfig{InputDir: "inputs"}
	require.NoError(t, configbinder.BindProperties(nil, cfg))
	assert.Equal(t, "inputs", cfg.InputDir)
}

func TestBindProperties_InvalidNumber(t *testing.T) {
	cfg := &glidePathConfig{}
	err := configbinder.BindProperties(map[string]string{"target": "lots"}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "glidePathConfig")
}
