// Package firefox recovers Phabricator session cookies from local Firefox
// profiles. The cookie database belongs to the browser, so reads are strictly
// read-only; a locked database is worked around by snapshotting it to a
// temporary copy.
package firefox

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ericfisherdev/phabdigest/internal/domain/port/driven"
)

// Cookie names Phabricator requires for an authenticated session.
const (
	sessionCookieName = "phsid"
	userCookieName    = "phusr"
)

// Store reads session cookies out of Firefox cookie databases.
type Store struct {
	root string // When set, overrides platform profile discovery.
}

var _ driven.CookieSource = (*Store)(nil)

// NewStore returns a Store that discovers profiles under the platform's
// Firefox directory.
func NewStore() *Store {
	return &Store{}
}

// NewStoreAt returns a Store bound to an explicit profile root directory.
func NewStoreAt(root string) *Store {
	return &Store{root: root}
}

// SessionCookies walks candidate profiles newest-first and returns the
// unexpired cookies of the first profile holding a full Phabricator session
// for the domain suffix.
func (s *Store) SessionCookies(ctx context.Context, domainSuffix string) (map[string]string, error) {
	root := s.root
	if root == "" {
		var err error
		root, err = profileRootDir(runtime.GOOS)
		if err != nil {
			return nil, fmt.Errorf("locate firefox directory: %v: %w", err, driven.ErrNoCookies)
		}
	}

	profiles, err := profilesUnder(root)
	if err != nil {
		return nil, fmt.Errorf("scan firefox profiles under %s: %w", root, err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no firefox profile with cookies.sqlite under %s: %w", root, driven.ErrNoCookies)
	}

	for _, p := range profiles {
		cookies, err := s.readProfileCookies(ctx, p.cookieDB, domainSuffix)
		if err != nil {
			slog.Debug("cookie db read failed", "profile", p.dir, "error", err)
			continue
		}
		if HasSessionCookies(cookies) {
			slog.Debug("session cookies found", "profile", p.dir, "count", len(cookies))
			return cookies, nil
		}
	}

	return nil, fmt.Errorf("no firefox profile holds a session for %s: %w", domainSuffix, driven.ErrNoCookies)
}

// readProfileCookies queries one cookie database, retrying against a
// temporary snapshot when the browser holds it locked. The snapshot is
// removed whether or not the retry succeeds.
func (s *Store) readProfileCookies(ctx context.Context, dbPath, domainSuffix string) (map[string]string, error) {
	cookies, err := queryCookies(ctx, dbPath, domainSuffix)
	if err == nil || !isLockedErr(err) {
		return cookies, err
	}

	slog.Debug("cookie db locked, retrying against a copy", "path", dbPath)
	tmpPath, err := snapshotDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot locked cookie db: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			slog.Warn("temp cookie db cleanup failed", "path", tmpPath, "error", rmErr)
		}
	}()

	return queryCookies(ctx, tmpPath, domainSuffix)
}

func queryCookies(ctx context.Context, dbPath, domainSuffix string) (map[string]string, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open cookie db: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx,
		"SELECT name, value FROM moz_cookies WHERE host LIKE ? AND expiry > ?",
		"%"+domainSuffix, time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query moz_cookies: %w", err)
	}
	defer rows.Close()

	cookies := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan cookie row: %w", err)
		}
		cookies[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cookie rows: %w", err)
	}
	return cookies, nil
}

// isLockedErr reports whether the error is lock contention from the browser
// holding the database.
func isLockedErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func snapshotDB(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "phabdigest-cookies-*.sqlite")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// HasSessionCookies reports whether the map carries both cookies Phabricator
// needs for an authenticated session.
func HasSessionCookies(cookies map[string]string) bool {
	return cookies[sessionCookieName] != "" && cookies[userCookieName] != ""
}

// ParseCookieString converts a "name1=value1; name2=value2" override string
// into a cookie map. Malformed pairs are dropped.
func ParseCookieString(s string) map[string]string {
	cookies := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies[name] = strings.TrimSpace(value)
	}
	return cookies
}

// FormatCookieHeader renders a cookie map as a Cookie header value with
// key-sorted pairs so requests stay deterministic.
func FormatCookieHeader(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(cookies[name])
	}
	return b.String()
}
