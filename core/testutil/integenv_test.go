package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nTODOSYNC_TEST_TOKEN=abc\nexport TODOSYNC_TEST_REPOSITORY = \"octo/hello\"\nbroken line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	vars := parseEnvFile(path)
	assert.Equal(t, map[string]string{
		"TODOSYNC_TEST_TOKEN":      "abc",
		"TODOSYNC_TEST_REPOSITORY": "octo/hello",
	}, vars)
}

func TestParseEnvFile_Missing(t *testing.T) {
	t.Parallel()
	assert.Empty(t, parseEnvFile(filepath.Join(t.TempDir(), "missing")))
	assert.Empty(t, parseEnvFile(""))
}

func TestIntegEnv_PrefersEnvironment(t *testing.T) {
	t.Setenv("TODOSYNC_TESTUTIL_PROBE", "from-env")
	assert.Equal(t, "from-env", IntegEnv("TODOSYNC_TESTUTIL_PROBE"))
}
