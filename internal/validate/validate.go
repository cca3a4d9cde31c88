// Package validate checks and normalizes tag identifiers.
//
// Newly suggested tags must match the canonical form: lowercase,
// hyphen-delimited alphanumerics. Legacy tags already present in a vault may
// violate the pattern; they are accepted by the stores but never produced by
// normalization.
package validate

import (
	"regexp"
	"strings"

	taggederrors "github.com/Aman-CERP/tagvault/internal/errors"
)

// tagPattern is the canonical form for new tags.
var tagPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// IsValidTag reports whether tag matches the canonical form.
func IsValidTag(tag string) bool {
	return tagPattern.MatchString(tag)
}

// CheckTag returns a validation error when tag does not match the canonical
// form. The error carries the offending tag as a detail.
func CheckTag(tag string) error {
	if IsValidTag(tag) {
		return nil
	}
	return taggederrors.New(taggederrors.ErrCodeInvalidTag,
		"tag must be lowercase alphanumerics delimited by single hyphens", nil).
		WithDetail("tag", tag).
		WithSuggestion("use a form like \"note-taking\" or \"productivity\"")
}

// Normalize converts free-form text into canonical tag form: lowercased,
// whitespace and underscores become hyphens, runs of hyphens collapse, and
// anything outside [a-z0-9-] is dropped. An empty result means the input had
// no usable characters.
func Normalize(text string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '\t' || r == '_' || r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ParseTagList splits a comma-separated tag list, trimming whitespace and
// dropping empties. Order is preserved and duplicates removed.
func ParseTagList(s string) []string {
	parts := strings.Split(s, ",")
	seen := make(map[string]struct{}, len(parts))
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.TrimSpace(p)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
