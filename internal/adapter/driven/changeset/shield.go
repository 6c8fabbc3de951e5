package changeset

import "bytes"

// jsShield is the anti-content-sniffing prefix Phabricator prepends to every
// AJAX response body.
const jsShield = "for (;;);"

// StripShield removes the leading JavaScript shield from an AJAX response
// body. Bodies without the shield pass through unchanged, so calling it on
// already-stripped input is safe.
func StripShield(body []byte) []byte {
	return bytes.TrimPrefix(body, []byte(jsShield))
}
