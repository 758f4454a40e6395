// Package services implements the server-side application logic: upload
// intake, catalog listing, folder lifecycle and the deduplication job.
package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dmitrijs2005/imgvault/internal/common"
)

// segmentRe is the restricted character class for one folder segment:
// letters (any script), digits and underscore.
var segmentRe = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)

// NormalizeFolder canonicalizes a folder path so that it always begins and
// ends with "/". An empty path means the root.
func NormalizeFolder(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "/"
	}
	return "/" + path + "/"
}

// ValidateFolder normalizes path and rejects it unless every segment
// matches the restricted character class. Validation runs before any
// statement touches the catalog.
func ValidateFolder(path string) (string, error) {
	norm := NormalizeFolder(path)
	if norm == "/" {
		return norm, nil
	}
	for _, seg := range strings.Split(strings.Trim(norm, "/"), "/") {
		if !segmentRe.MatchString(seg) {
			return "", fmt.Errorf("%w: segment %q", common.ErrInvalidFolder, seg)
		}
	}
	return norm, nil
}

// expandAncestors adds the implied ancestor of every folder: "/a/b/"
// implies "/a/" even when no record sits there directly. The root is always
// present. The result is sorted and de-duplicated.
func expandAncestors(folders []string) []string {
	seen := map[string]struct{}{"/": {}}
	for _, f := range folders {
		segs := strings.Split(strings.Trim(f, "/"), "/")
		prefix := "/"
		for _, s := range segs {
			if s == "" {
				continue
			}
			prefix += s + "/"
			seen[prefix] = struct{}{}
		}
	}

	result := make([]string, 0, len(seen))
	for f := range seen {
		result = append(result, f)
	}
	sort.Strings(result)
	return result
}
