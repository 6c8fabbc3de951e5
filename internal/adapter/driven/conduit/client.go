// Package conduit implements the ConduitClient port against Phabricator's
// HTTP API. Every call is a form-encoded POST carrying the API token; results
// come back inside the standard {error_code, error_info, result} envelope.
package conduit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
	"github.com/ericfisherdev/phabdigest/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ConduitClient = (*Client)(nil)

// Client implements the driven.ConduitClient port.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Conduit client for the given instance. timeout bounds
// each call alongside context cancellation.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// call POSTs one Conduit method and decodes the result envelope into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("api.token", c.token)

	endpoint := c.baseURL + "/api/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d", method, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if envelope.ErrorCode != "" {
		return fmt.Errorf("%s: %s: %s", method, envelope.ErrorCode, envelope.ErrorInfo)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// LookupRevisionPHID resolves a numeric revision id to its PHID.
func (c *Client) LookupRevisionPHID(ctx context.Context, revisionID int) (string, error) {
	params := url.Values{}
	params.Set("constraints[ids][0]", strconv.Itoa(revisionID))

	var result revisionSearchResult
	if err := c.call(ctx, "differential.revision.search", params, &result); err != nil {
		return "", err
	}
	if len(result.Data) == 0 {
		return "", fmt.Errorf("revision D%d: %w", revisionID, driven.ErrNotFound)
	}
	return result.Data[0].PHID, nil
}

// SearchTransactions returns every transaction on the object, following the
// result cursor until exhausted.
func (c *Client) SearchTransactions(ctx context.Context, objectPHID string) ([]model.Transaction, error) {
	var all []model.Transaction
	after := ""
	for {
		params := url.Values{}
		params.Set("objectIdentifier", objectPHID)
		if after != "" {
			params.Set("after", after)
		}

		var result transactionSearchResult
		if err := c.call(ctx, "transaction.search", params, &result); err != nil {
			return nil, err
		}

		for _, record := range result.Data {
			all = append(all, mapTransaction(record))
		}

		slog.Debug("transactions page fetched",
			"object", objectPHID,
			"count", len(result.Data),
			"after", result.Cursor.After,
		)

		if result.Cursor.After == "" {
			break
		}
		after = result.Cursor.After
	}

	if all == nil {
		all = []model.Transaction{}
	}
	return all, nil
}

// LookupUser resolves a user PHID to a display name, preferring real name
// with username, then real name, then username, then the PHID itself.
func (c *Client) LookupUser(ctx context.Context, userPHID string) (string, error) {
	params := url.Values{}
	params.Set("constraints[phids][0]", userPHID)

	var result userSearchResult
	if err := c.call(ctx, "user.search", params, &result); err != nil {
		return "", err
	}
	if len(result.Data) == 0 {
		return "", fmt.Errorf("user %s: %w", userPHID, driven.ErrNotFound)
	}

	fields := result.Data[0].Fields
	return displayName(fields.RealName, fields.Username, userPHID), nil
}

// LatestDiffID returns the newest diff id attached to the revision.
func (c *Client) LatestDiffID(ctx context.Context, revisionID int) (int64, error) {
	params := url.Values{}
	params.Set("constraints[revisionIDs][0]", strconv.Itoa(revisionID))
	params.Set("order", "newest")
	params.Set("limit", "1")

	var result diffSearchResult
	if err := c.call(ctx, "differential.diff.search", params, &result); err != nil {
		return 0, err
	}
	if len(result.Data) == 0 {
		return 0, fmt.Errorf("diffs for D%d: %w", revisionID, driven.ErrNotFound)
	}
	return result.Data[0].ID, nil
}

func displayName(realName, username, phid string) string {
	switch {
	case realName != "" && username != "":
		return fmt.Sprintf("%s (%s)", realName, username)
	case realName != "":
		return realName
	case username != "":
		return username
	default:
		return phid
	}
}

// mapTransaction converts a wire transaction into the domain model. Inline
// placement fields decode leniently; a fields blob that does not match the
// inline shape reads as absent placement data.
func mapTransaction(record transactionRecord) model.Transaction {
	tx := model.Transaction{
		ID:         record.ID,
		PHID:       record.PHID,
		Type:       model.TransactionType(record.Type),
		AuthorPHID: record.AuthorPHID,
		CreatedAt:  time.Unix(record.DateCreated, 0).UTC(),
	}

	for _, comment := range record.Comments {
		tx.Comments = append(tx.Comments, model.CommentRecord{
			ID:  comment.ID,
			Raw: comment.Content.Raw,
		})
	}

	if tx.Type == model.TransactionInline {
		var fields inlineWireFields
		if len(record.Fields) > 0 {
			_ = json.Unmarshal(record.Fields, &fields)
		}
		length := fields.Length
		if length < 1 {
			length = 1
		}
		tx.Inline = &model.InlineFields{
			Path:         fields.Path,
			Line:         fields.Line,
			Length:       length,
			ChangesetRef: fields.Diff.ID,
			IsDone:       fields.IsDone,
		}
	}

	return tx
}
