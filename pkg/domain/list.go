package domain

import "strings"

// ListDelimiter separates entries in list-valued fields such as
// Book.Genres or UserProfile.PreferredFormats.
const ListDelimiter = ";"

// ParseList turns a list-valued field into trimmed non-empty tokens.
// Stored data is not uniform: fields arrive either as a delimited string
// or as an already-split list, so both shapes are accepted here rather
// than type-checked at every call site. Anything else parses to nil.
func ParseList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(val))
		for _, item := range val {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			out = append(out, item)
		}
		return out
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		parts := strings.Split(val, ListDelimiter)
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		return out
	default:
		return nil
	}
}

// JoinList is the inverse of ParseList for persisting list-valued fields.
func JoinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return strings.Join(out, ListDelimiter)
}
