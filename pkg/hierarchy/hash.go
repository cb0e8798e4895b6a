package hierarchy

import (
	"encoding/hex"
	"path"
	"strings"

	"golang.org/x/crypto/sha3"
)

// hashLength is the digest size in bytes. Hashes are twice as long in hex.
const hashLength = 8

// Hash returns the identity of a route: SHAKE256 with an 8 byte output,
// hex encoded.
func Hash(route string) string {
	sum := make([]byte, hashLength)
	sha3.ShakeSum256(sum, []byte(route))
	return hex.EncodeToString(sum)
}

// RoutePath joins a base path and a slash separated directory relative to
// the pages root into a route with leading and trailing slashes.
//
//	RoutePath("/app/", "blog/post-1") == "/app/blog/post-1/"
func RoutePath(base, rel string) string {
	if rel == "." {
		rel = ""
	}
	p := path.Join("/", base, rel)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
