// Package checksum fingerprints workspace files for change detection.
package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

var crlf = []byte("\r\n")

// Sum returns the hex-encoded SHA-256 digest of data. CRLF line endings are
// folded to LF first, so a file re-saved by an editor with different line
// endings keeps its fingerprint.
func Sum(data []byte) string {
	if bytes.Contains(data, crlf) {
		data = bytes.ReplaceAll(data, crlf, []byte("\n"))
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
