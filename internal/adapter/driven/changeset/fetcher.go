// Package changeset fetches rendered diff fragments from Phabricator's
// internal /differential/changeset/ AJAX endpoint.
package changeset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
	"github.com/ericfisherdev/phabdigest/internal/domain/port/driven"
)

// userAgent matches a desktop Firefox so the endpoint serves the same markup
// a browser session would receive.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:142.0) Gecko/20100101 Firefox/142.0"

// csrfFallback is accepted by instances that do not enforce CSRF validation
// on read-only changeset requests.
const csrfFallback = "dummy"

var (
	csrfInputRe      = regexp.MustCompile(`__csrf__.*?value="([^"]+)"`)
	csrfCurrentRe    = regexp.MustCompile(`"current":"([^"]+)"`)
	suggestionTextRe = regexp.MustCompile(`"suggestionText":"((?:[^"\\]|\\.)*)"`)
)

// Compile-time interface satisfaction check.
var _ driven.ChangesetSource = (*Fetcher)(nil)

// Fetcher implements the driven.ChangesetSource port by impersonating a
// browser session: Firefox session cookies plus a CSRF token scraped from the
// revision page.
type Fetcher struct {
	baseURL    string
	revisionID int
	cookies    string // preformatted Cookie header value; empty sends none
	http       *http.Client

	csrfOnce sync.Once
	csrfTok  string
}

// NewFetcher creates a Fetcher for a single revision. The HTTP transport
// layers httpcache for conditional request caching on page GETs; POSTs pass
// through uncached.
func NewFetcher(baseURL string, revisionID int, cookieHeader string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		revisionID: revisionID,
		cookies:    cookieHeader,
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   timeout,
		},
	}
}

// fragmentEnvelope is the JSON shape of a changeset AJAX response after the
// shield prefix is stripped.
type fragmentEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Payload struct {
		Changeset string `json:"changeset"`
	} `json:"payload"`
}

// FetchFragment retrieves the rendered diff fragment for one changeset
// reference. Undecodable or error-bearing payloads wrap
// driven.ErrMalformedPayload so callers can degrade the affected comments
// instead of aborting the run.
func (f *Fetcher) FetchFragment(ctx context.Context, ref int64) (*model.ChangesetFragment, error) {
	form := url.Values{}
	form.Set("ref", strconv.FormatInt(ref, 10))
	form.Set("device", "1up")
	form.Set("__wflow__", "true")
	form.Set("__ajax__", "true")
	form.Set("__metablock__", "7")

	endpoint := f.baseURL + "/differential/changeset/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building changeset request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", f.baseURL)
	req.Header.Set("X-Phabricator-Csrf", f.csrfToken(ctx))
	req.Header.Set("X-Phabricator-Via", fmt.Sprintf("/D%d", f.revisionID))
	if f.cookies != "" {
		req.Header.Set("Cookie", f.cookies)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching changeset %d: %w", ref, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("changeset %d: HTTP %d", ref, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading changeset %d: %w", ref, err)
	}

	stripped := StripShield(body)

	var env fragmentEnvelope
	if err := json.Unmarshal(stripped, &env); err != nil {
		slog.Warn("changeset payload not decodable", "ref", ref, "error", err)
		return nil, fmt.Errorf("changeset %d: %w", ref, driven.ErrMalformedPayload)
	}

	if len(env.Error) > 0 && string(env.Error) != "null" {
		slog.Warn("changeset endpoint returned error", "ref", ref, "detail", string(env.Error))
		return nil, fmt.Errorf("changeset %d: %w", ref, driven.ErrMalformedPayload)
	}

	if env.Payload.Changeset == "" {
		return nil, fmt.Errorf("changeset %d: empty fragment: %w", ref, driven.ErrMalformedPayload)
	}

	fragment := &model.ChangesetFragment{
		Ref:             ref,
		HTML:            env.Payload.Changeset,
		SuggestionTexts: rawSuggestionTexts(stripped),
	}

	slog.Debug("changeset fragment fetched",
		"ref", ref,
		"bytes", len(fragment.HTML),
		"raw_suggestions", len(fragment.SuggestionTexts),
	)

	return fragment, nil
}

// csrfToken returns the CSRF token for changeset requests, scraping it from
// the revision page on first use. The result of the first scrape, fallback
// included, is reused for the lifetime of the Fetcher.
func (f *Fetcher) csrfToken(ctx context.Context) string {
	f.csrfOnce.Do(func() {
		f.csrfTok = f.scrapeCSRF(ctx)
	})
	return f.csrfTok
}

func (f *Fetcher) scrapeCSRF(ctx context.Context) string {
	pageURL := fmt.Sprintf("%s/D%d", f.baseURL, f.revisionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		slog.Warn("csrf scrape failed, using fallback token", "error", err)
		return csrfFallback
	}
	req.Header.Set("User-Agent", userAgent)
	if f.cookies != "" {
		req.Header.Set("Cookie", f.cookies)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		slog.Warn("csrf scrape failed, using fallback token", "error", err)
		return csrfFallback
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("csrf scrape returned non-200, using fallback token", "status", resp.StatusCode)
		return csrfFallback
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("csrf scrape failed, using fallback token", "error", err)
		return csrfFallback
	}

	if m := csrfInputRe.FindSubmatch(body); m != nil {
		return string(m[1])
	}
	if m := csrfCurrentRe.FindSubmatch(body); m != nil {
		return string(m[1])
	}

	slog.Debug("no csrf token in revision page, using fallback")
	return csrfFallback
}

// rawSuggestionTexts collects every suggestionText value from the
// shield-stripped response body in document order, decoded from its JSON
// string escapes. The endpoint carries these in behavior config beside the
// changeset markup, not inside it.
func rawSuggestionTexts(body []byte) []string {
	matches := suggestionTextRe.FindAllSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, unescapeJSONString(string(m[1])))
	}
	return texts
}

// unescapeJSONString decodes JSON escapes in a capture taken from inside a
// quoted JSON value. Captures that fail to decode are kept as-is.
func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
