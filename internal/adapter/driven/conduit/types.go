package conduit

import "encoding/json"

// apiEnvelope is the fixed Conduit response wrapper. A non-empty error_code
// means the call failed regardless of HTTP status.
type apiEnvelope struct {
	ErrorCode string          `json:"error_code"`
	ErrorInfo string          `json:"error_info"`
	Result    json.RawMessage `json:"result"`
}

// searchCursor pages *.search results; After is non-empty while more pages
// remain.
type searchCursor struct {
	After string `json:"after"`
}

type revisionSearchResult struct {
	Data []struct {
		ID   int    `json:"id"`
		PHID string `json:"phid"`
	} `json:"data"`
}

type transactionSearchResult struct {
	Data   []transactionRecord `json:"data"`
	Cursor searchCursor        `json:"cursor"`
}

type transactionRecord struct {
	ID          int64  `json:"id"`
	PHID        string `json:"phid"`
	Type        string `json:"type"`
	AuthorPHID  string `json:"authorPHID"`
	DateCreated int64  `json:"dateCreated"`
	Comments    []struct {
		ID      int64 `json:"id"`
		Content struct {
			Raw string `json:"raw"`
		} `json:"content"`
	} `json:"comments"`
	// Fields is type-dependent; decoded separately so an unexpected shape
	// never fails the whole page.
	Fields json.RawMessage `json:"fields"`
}

// inlineWireFields is the fields shape of an inline transaction.
type inlineWireFields struct {
	Diff struct {
		ID int64 `json:"id"`
	} `json:"diff"`
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Length int    `json:"length"`
	IsDone bool   `json:"isDone"`
}

type userSearchResult struct {
	Data []struct {
		Fields struct {
			Username string `json:"username"`
			RealName string `json:"realName"`
		} `json:"fields"`
	} `json:"data"`
}

type diffSearchResult struct {
	Data []struct {
		ID int64 `json:"id"`
	} `json:"data"`
}
