package build

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/hubro-apparatus/hubro/pkg/assets"
)

// fingerprint renames every bundle after a hash of its contents, so a
// changed bundle never reuses a name a client may have cached. A linked
// source map follows its bundle and the sourceMappingURL comment is
// rewritten to the new name. The returned map holds the path each
// renamed bundle had before.
func fingerprint(files []OutputFile) ([]OutputFile, map[string]string) {
	maps := make(map[string]int)
	for i, f := range files {
		if strings.HasSuffix(f.Path, ".map") {
			maps[f.Path] = i
		}
	}

	out := make([]OutputFile, len(files))
	copy(out, files)
	logical := make(map[string]string)

	for i, f := range files {
		if strings.HasSuffix(f.Path, ".map") {
			continue
		}
		hashed := assets.Fingerprint(f.Path, assets.ContentHash(f.Contents))
		contents := f.Contents

		if j, ok := maps[f.Path+".map"]; ok {
			out[j].Path = hashed + ".map"
			contents = bytes.Replace(contents,
				[]byte("sourceMappingURL="+filepath.Base(f.Path)+".map"),
				[]byte("sourceMappingURL="+filepath.Base(hashed)+".map"), 1)
		}

		out[i] = OutputFile{Path: hashed, Contents: contents}
		logical[hashed] = f.Path
	}
	return out, logical
}
