package lint

import "strings"

// TagSet is an ordered selection of validator tags.
// An empty set selects every validator known to the engine.
type TagSet []string

// ParseTagSet splits a comma separated list of tags. Segments are kept
// verbatim, without trimming; empty segments are dropped.
func ParseTagSet(raw string) TagSet {
	var tags TagSet
	for _, tag := range strings.Split(raw, ",") {
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

// ParseTagSets parses each list in turn and concatenates the results,
// preserving order and duplicates.
func ParseTagSets(raws []string) TagSet {
	var tags TagSet
	for _, raw := range raws {
		tags = append(tags, ParseTagSet(raw)...)
	}
	return tags
}

// All reports whether the set selects every validator.
func (s TagSet) All() bool {
	return len(s) == 0
}

// String joins the set back into its comma separated form.
func (s TagSet) String() string {
	return strings.Join(s, ",")
}
