package firefox

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// profileRoot describes where one platform keeps Firefox profiles.
type profileRoot struct {
	fromConfigDir bool // Resolve against the user config dir instead of home.
	segments      []string
}

// profileRoots maps GOOS values to profile locations. Platforms not listed
// use the unix layout.
var profileRoots = map[string]profileRoot{
	"windows": {fromConfigDir: true, segments: []string{"Mozilla", "Firefox", "Profiles"}},
	"darwin":  {segments: []string{"Library", "Application Support", "Firefox", "Profiles"}},
}

var unixProfileRoot = profileRoot{segments: []string{".mozilla", "firefox"}}

// profileRootDir resolves the Firefox profile directory for the given GOOS.
func profileRootDir(goos string) (string, error) {
	root, ok := profileRoots[goos]
	if !ok {
		root = unixProfileRoot
	}

	var base string
	var err error
	if root.fromConfigDir {
		base, err = os.UserConfigDir()
	} else {
		base, err = os.UserHomeDir()
	}
	if err != nil {
		return "", err
	}

	return filepath.Join(append([]string{base}, root.segments...)...), nil
}

// profile is one candidate Firefox profile directory.
type profile struct {
	dir      string
	cookieDB string
	mtime    time.Time
}

// profilesUnder returns every direct subdirectory of root that contains a
// cookies.sqlite, ordered newest database first. A missing root yields an
// empty list, not an error.
func profilesUnder(root string) ([]profile, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var profiles []profile
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		dbPath := filepath.Join(dir, "cookies.sqlite")
		info, err := os.Stat(dbPath)
		if err != nil {
			continue
		}
		profiles = append(profiles, profile{dir: dir, cookieDB: dbPath, mtime: info.ModTime()})
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].mtime.After(profiles[j].mtime)
	})
	return profiles, nil
}
