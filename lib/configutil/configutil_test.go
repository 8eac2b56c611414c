package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	TotalSeats int      `json:"total_seats"`
	Template   string   `json:"page_template"`
	Parties    []string `json:"parties"`
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "config.local.json5", LocalPath("config.json5"))
	require.Equal(t, filepath.Join("a", "b.local.json5"), LocalPath(filepath.Join("a", "b.json5")))
}

func TestReadConfigMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	err := os.WriteFile(name, []byte(`{
		// comments are allowed in json5
		total_seats: 243,
		page_template: "https://example.com/page{page}.htm",
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(LocalPath(name), []byte(`{total_seats: 10, parties: ["A"]}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, 10, cfg.TotalSeats)
	require.Equal(t, "https://example.com/page{page}.htm", cfg.Template)
	require.Equal(t, []string{"A"}, cfg.Parties)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{total_seats: `), 0600))

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}
