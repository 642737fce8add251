package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"fuelbill/internal"
	"fuelbill/internal/util"
)

// HeaderMatcher decides whether a header cell names a field described by
// the candidate labels.
type HeaderMatcher interface {
	Match(header string, candidates []string) bool
}

type MatcherFunc func(header string, candidates []string) bool

func (f MatcherFunc) Match(header string, candidates []string) bool { return f(header, candidates) }

// SubstringMatcher matches when either cleaned text contains the other.
var SubstringMatcher HeaderMatcher = MatcherFunc(substringMatch)

func substringMatch(header string, candidates []string) bool {
	h := util.CleanHeader(header)
	if h == "" {
		return false
	}
	for _, candidate := range candidates {
		c := util.CleanHeader(candidate)
		if c == "" {
			continue
		}
		if strings.Contains(h, c) || strings.Contains(c, h) {
			return true
		}
	}
	return false
}

// EditDistanceMatcher accepts headers within MaxDistance edits of a
// candidate, on top of the substring rule.
type EditDistanceMatcher struct {
	MaxDistance int
}

func (m EditDistanceMatcher) Match(header string, candidates []string) bool {
	if substringMatch(header, candidates) {
		return true
	}
	h := strings.ToLower(util.CleanHeader(header))
	if h == "" {
		return false
	}
	for _, candidate := range candidates {
		c := strings.ToLower(util.CleanHeader(candidate))
		if c == "" {
			continue
		}
		if fuzzy.LevenshteinDistance(h, c) <= m.MaxDistance {
			return true
		}
	}
	return false
}

// NewHeaderMatcher picks a strategy by name. Unknown names get the
// substring matcher.
func NewHeaderMatcher(name string, maxDistance int) HeaderMatcher {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "levenshtein", "edit_distance":
		if maxDistance < 0 {
			maxDistance = 0
		}
		return EditDistanceMatcher{MaxDistance: maxDistance}
	default:
		return SubstringMatcher
	}
}

// ResolveColumns assigns header columns to fields in priority order. Each
// field takes the leftmost matching column no earlier field has claimed.
// origin and destination are only considered when the mappings name them.
func ResolveColumns(headers []string, mappings map[internal.Field][]string, matcher HeaderMatcher) internal.ColumnMap {
	if matcher == nil {
		matcher = SubstringMatcher
	}
	out := internal.ColumnMap{}
	for _, field := range internal.FieldPriority {
		candidates, ok := mappings[field]
		if !ok {
			continue
		}
		for col, header := range headers {
			if out.Claimed(col) {
				continue
			}
			if matcher.Match(header, candidates) {
				out[field] = col
				break
			}
		}
	}
	return out
}

// ResolveOverrideColumns maps operator supplied designators. A value of at
// most three ASCII letters is a column letter, anything else is an exact
// header label. Values that do not resolve, or name a column an earlier
// field already took, are reported and left out.
func ResolveOverrideColumns(headers []string, columns map[string]string) (internal.ColumnMap, []string) {
	out := internal.ColumnMap{}
	var warnings []string
	for _, field := range internal.FieldPriority {
		raw, ok := columns[string(field)]
		if !ok {
			continue
		}
		value := strings.TrimSpace(raw)
		if util.IsColumnDesignator(value) {
			idx, err := util.ColumnLettersToIndex(value)
			if err != nil || idx >= len(headers) {
				warnings = append(warnings, fmt.Sprintf("column %s for %s is out of range", value, field))
				continue
			}
			if out.Claimed(idx) {
				warnings = append(warnings, fmt.Sprintf("column %s for %s is already used by another field", value, field))
				continue
			}
			out[field] = idx
			continue
		}
		idx := indexOfHeader(headers, value)
		if idx < 0 {
			warnings = append(warnings, fmt.Sprintf("column %q for %s does not exist", value, field))
			continue
		}
		if out.Claimed(idx) {
			warnings = append(warnings, fmt.Sprintf("column %q for %s is already used by another field", value, field))
			continue
		}
		out[field] = idx
	}

	var unknown []string
	for k := range columns {
		if !isKnownField(k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		warnings = append(warnings, fmt.Sprintf("unknown field %q in column overrides", k))
	}
	return out, warnings
}

func isKnownField(name string) bool {
	for _, f := range internal.FieldPriority {
		if string(f) == name {
			return true
		}
	}
	return false
}

func indexOfHeader(headers []string, label string) int {
	if label == "" {
		return -1
	}
	for i, h := range headers {
		if h == label {
			return i
		}
	}
	return -1
}

// ColumnMapNames renders a column map with string keys, for logs and the
// run journal.
func ColumnMapNames(m internal.ColumnMap) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
