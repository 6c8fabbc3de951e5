package model

import "fmt"

// Revision identifies one Differential review. Built once per run and
// immutable afterwards.
type Revision struct {
	ID      int
	BaseURL string // Scheme + host, no trailing slash.
	PHID    string // Resolved internal identifier; empty until looked up.
}

// URL returns the browser-facing address of the revision.
func (r Revision) URL() string {
	return fmt.Sprintf("%s/D%d", r.BaseURL, r.ID)
}
