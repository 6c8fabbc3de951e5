package firefox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRootDir_PerPlatform(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cfg, err := os.UserConfigDir()
	require.NoError(t, err)

	tests := []struct {
		goos string
		want string
	}{
		{"windows", filepath.Join(cfg, "Mozilla", "Firefox", "Profiles")},
		{"darwin", filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")},
		{"linux", filepath.Join(home, ".mozilla", "firefox")},
		{"freebsd", filepath.Join(home, ".mozilla", "firefox")},
	}
	for _, tt := range tests {
		got, err := profileRootDir(tt.goos)
		require.NoError(t, err, tt.goos)
		assert.Equal(t, tt.want, got, tt.goos)
	}
}

func TestProfilesUnder(t *testing.T) {
	root := t.TempDir()

	oldDB := writeCookieDB(t, filepath.Join(root, "aaa.old"), nil)
	writeCookieDB(t, filepath.Join(root, "bbb.new"), nil)
	// A profile directory without a cookie database is not a candidate.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ccc.empty"), 0o755))
	// Neither is a stray file at the root.
	require.NoError(t, os.WriteFile(filepath.Join(root, "profiles.ini"), []byte("[General]"), 0o644))

	stale := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(oldDB, stale, stale))

	profiles, err := profilesUnder(root)

	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, filepath.Join(root, "bbb.new"), profiles[0].dir)
	assert.Equal(t, filepath.Join(root, "aaa.old"), profiles[1].dir)
}

func TestProfilesUnder_MissingRoot(t *testing.T) {
	profiles, err := profilesUnder(filepath.Join(t.TempDir(), "does-not-exist"))

	require.NoError(t, err)
	assert.Empty(t, profiles)
}
