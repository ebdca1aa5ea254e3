package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Run("returns the value when set", func(t *testing.T) {
		t.Setenv("CHART_TRAINER_TEST_VAR", "abc")

		v, err := GetEnv("CHART_TRAINER_TEST_VAR")
		require.NoError(t, err)
		assert.Equal(t, "abc", v)
	})

	t.Run("errors when missing", func(t *testing.T) {
		t.Setenv("CHART_TRAINER_TEST_VAR", "")

		_, err := GetEnv("CHART_TRAINER_TEST_VAR")
		assert.Error(t, err)
	})

	t.Run("falls back to default", func(t *testing.T) {
		t.Setenv("CHART_TRAINER_TEST_VAR", "")
		assert.Equal(t, "5000", GetEnvOrDefault("CHART_TRAINER_TEST_VAR", "5000"))
	})
}

func TestInitEnvironmentVariables(t *testing.T) {
	t.Run("missing env file is not an error", func(t *testing.T) {
		t.Setenv("ENV", "")
		t.Setenv("PROJECTS_DIR", t.TempDir())

		assert.NoError(t, InitEnvironmentVariables())
	})

	t.Run("loads the development file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, DEV_ENV_FILENAME), []byte("CHART_TRAINER_FROM_FILE=yes\n"), 0o644))

		t.Setenv("ENV", "")
		t.Setenv("GO_ENV", "")
		t.Setenv("PROJECTS_DIR", dir)
		t.Setenv("CHART_TRAINER_FROM_FILE", "")
		os.Unsetenv("CHART_TRAINER_FROM_FILE")

		require.NoError(t, InitEnvironmentVariables())
		assert.Equal(t, "yes", os.Getenv("CHART_TRAINER_FROM_FILE"))
	})
}
