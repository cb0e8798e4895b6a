package assets

import (
	"encoding/hex"
	"path"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ContentHash returns the 16 character hex digest used to fingerprint
// build output.
func ContentHash(data []byte) string {
	sum := make([]byte, 8)
	sha3.ShakeSum256(sum, data)
	return hex.EncodeToString(sum)
}

// Fingerprint inserts hash before the extension of name:
//
//	Fingerprint("pages/4f6c2a9e1b0d3c57.js", "9a0b1c2d3e4f5a6b")
//	// "pages/4f6c2a9e1b0d3c57.9a0b1c2d3e4f5a6b.js"
func Fingerprint(name, hash string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "." + hash + ext
}

// IsFingerprinted reports whether a file name carries a content hash
// after its stem, as "pages/4f6c2a9e1b0d3c57.9a0b1c2d3e4f5a6b.js" and
// "app.a1b2c3d4.css" do. The stem itself is never taken for a content
// hash, so a page bundle named only after its route hash is not
// fingerprinted.
func IsFingerprinted(name string) bool {
	parts := strings.Split(path.Base(name), ".")
	if len(parts) < 3 {
		return false
	}
	for _, part := range parts[1 : len(parts)-1] {
		if isHex(part) {
			return true
		}
	}
	return false
}

func isHex(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
