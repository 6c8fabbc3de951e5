package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
	"github.com/ericfisherdev/phabdigest/internal/domain/port/driven"
)

// ExtractService orchestrates a full revision extraction: transaction fetch,
// author resolution, concurrent changeset enrichment, and document assembly.
type ExtractService struct {
	conduit     driven.ConduitClient
	changesets  driven.ChangesetSource // nil disables suggestion extraction
	baseURL     string
	concurrency int
}

// NewExtractService creates an ExtractService. changesets may be nil when no
// browser session is available; extraction then proceeds with suggestions
// simply absent.
func NewExtractService(conduit driven.ConduitClient, changesets driven.ChangesetSource, baseURL string, concurrency int) *ExtractService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExtractService{
		conduit:     conduit,
		changesets:  changesets,
		baseURL:     baseURL,
		concurrency: concurrency,
	}
}

// Extract builds the reconciled review document for one revision. Any API
// failure aborts before the first changeset fetch is issued; there is no
// partial-success output.
func (s *ExtractService) Extract(ctx context.Context, revisionID int, includeDone bool) (*model.Document, error) {
	phid, err := s.conduit.LookupRevisionPHID(ctx, revisionID)
	if err != nil {
		return nil, fmt.Errorf("resolving revision D%d: %w", revisionID, err)
	}

	txs, err := s.conduit.SearchTransactions(ctx, phid)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions for D%d: %w", revisionID, err)
	}

	slog.Info("transactions fetched", "revision", revisionID, "count", len(txs))

	names := s.resolveAuthors(ctx, txs)

	general := buildGeneralComments(txs, names)
	actions := buildReviewActions(txs, names)
	inline := buildInlineComments(txs, names)

	if !includeDone {
		inline = dropDone(inline)
	}

	switch {
	case len(inline) == 0:
	case s.changesets == nil:
		slog.Warn("no browser session available, skipping suggestion extraction")
	default:
		if err := s.enrichSuggestions(ctx, revisionID, inline, includeDone); err != nil {
			return nil, err
		}
	}

	rev := model.Revision{ID: revisionID, BaseURL: s.baseURL, PHID: phid}
	doc := assembleDocument(rev, general, actions, inline, includeDone)

	slog.Info("document assembled",
		"revision", revisionID,
		"general", len(doc.General),
		"inline", len(inline),
		"actions", len(doc.Actions),
		"files", len(doc.Files),
	)

	return &doc, nil
}

// resolveAuthors looks up display names for every distinct author of a
// transaction that contributes to the document, reusing each result across
// the run. Lookup failures fall back to the raw PHID.
func (s *ExtractService) resolveAuthors(ctx context.Context, txs []model.Transaction) map[string]string {
	names := make(map[string]string)
	for _, tx := range txs {
		if tx.Type != model.TransactionComment && tx.Type != model.TransactionInline && !tx.Type.IsReviewAction() {
			continue
		}
		phid := tx.AuthorPHID
		if phid == "" {
			continue
		}
		if _, ok := names[phid]; ok {
			continue
		}

		name, err := s.conduit.LookupUser(ctx, phid)
		if err != nil {
			slog.Debug("user lookup failed, falling back to phid", "phid", phid, "error", err)
			names[phid] = phid
			continue
		}
		names[phid] = name
	}
	return names
}

// enrichSuggestions fans out changeset fetches and attaches extracted
// suggestions to their inline comments. Fetches are bounded, deduplicated
// per reference id, and cached for the run. Undecodable fragments degrade to
// comments without suggestions; any other fetch failure aborts the run.
func (s *ExtractService) enrichSuggestions(ctx context.Context, revisionID int, inline []model.InlineComment, includeDone bool) error {
	fallbackRef, err := s.fallbackChangesetRef(ctx, revisionID, inline)
	if err != nil {
		return err
	}

	cache := newFragmentCache(s.changesets)

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(s.concurrency)

	for i := range inline {
		grp.Go(func() error {
			ic := &inline[i]

			ref := ic.ChangesetRef
			if ref == 0 {
				ref = fallbackRef
			}
			if ref == 0 {
				return nil
			}

			page, err := cache.page(gctx, ref)
			if err != nil {
				return err
			}
			if page == nil {
				return nil
			}

			if ic.Suggestion == nil {
				ic.Suggestion = page.extract(ic.CommentID, ic.Line, includeDone)
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return err
	}

	attached := 0
	for i := range inline {
		if inline[i].Suggestion != nil {
			attached++
		}
	}
	slog.Info("suggestion extraction complete", "inline_comments", len(inline), "suggestions", attached)

	return nil
}

// fallbackChangesetRef resolves the newest diff id for comments whose feed
// record omitted one. Returns 0 when no comment needs it or when the
// revision has no diffs at all.
func (s *ExtractService) fallbackChangesetRef(ctx context.Context, revisionID int, inline []model.InlineComment) (int64, error) {
	needed := false
	for _, ic := range inline {
		if ic.ChangesetRef == 0 {
			needed = true
			break
		}
	}
	if !needed {
		return 0, nil
	}

	ref, err := s.conduit.LatestDiffID(ctx, revisionID)
	if err != nil {
		if errors.Is(err, driven.ErrNotFound) {
			slog.Warn("revision has no diffs, comments without a changeset reference stay unresolved", "revision", revisionID)
			return 0, nil
		}
		return 0, fmt.Errorf("resolving fallback diff for D%d: %w", revisionID, err)
	}

	slog.Debug("using latest diff for comments without a changeset reference", "revision", revisionID, "diff", ref)
	return ref, nil
}

// fragmentCache deduplicates and caches parsed changeset fragments for one
// run. A nil cached page records a fragment whose payload could not be
// decoded, so later comments on the same reference do not refetch it.
type fragmentCache struct {
	source driven.ChangesetSource

	mu    sync.RWMutex
	pages map[int64]*fragmentPage

	flight singleflight.Group
}

func newFragmentCache(source driven.ChangesetSource) *fragmentCache {
	return &fragmentCache{
		source: source,
		pages:  make(map[int64]*fragmentPage),
	}
}

// page returns the parsed fragment for ref, fetching it at most once.
// Concurrent callers for the same reference share a single in-flight fetch.
func (c *fragmentCache) page(ctx context.Context, ref int64) (*fragmentPage, error) {
	c.mu.RLock()
	page, ok := c.pages[ref]
	c.mu.RUnlock()
	if ok {
		return page, nil
	}

	v, err, _ := c.flight.Do(strconv.FormatInt(ref, 10), func() (any, error) {
		fragment, err := c.source.FetchFragment(ctx, ref)
		if err != nil {
			if !errors.Is(err, driven.ErrMalformedPayload) {
				return nil, err
			}
			slog.Warn("changeset fragment unusable, its comments degrade to plain text", "ref", ref, "error", err)
			fragment = nil
		}

		page := parseFragment(fragment)
		c.mu.Lock()
		c.pages[ref] = page
		c.mu.Unlock()
		return page, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*fragmentPage), nil
}
