package pagination

import (
	"strings"
)

// RelNext is the relation type of the continuation link.
const RelNext = "next"

// Link is one entry of an RFC 5988 Link header.
type Link struct {
	// URL is the target between the angle brackets.
	URL string
	// Rels holds the relation types of the rel parameter (it may list several).
	Rels []string
	// Params holds every parameter of the entry, keys lower-cased, values unquoted.
	Params map[string]string
}

// HasRel reports whether the link carries the given relation type.
// Relation types compare case-insensitively.
func (l Link) HasRel(rel string) bool {
	for _, r := range l.Rels {
		if strings.EqualFold(r, rel) {
			return true
		}
	}
	return false
}

// ParseLinks parses a Link header value into its entries, in header order.
// Entries that cannot be parsed are skipped; an empty or wholly malformed
// header yields no links.
func ParseLinks(header string) []Link {
	var links []Link

	rest := header
	for {
		start := strings.IndexByte(rest, '<')
		if start < 0 {
			return links
		}
		end := strings.IndexByte(rest[start:], '>')
		if end < 0 {
			return links
		}

		target := strings.TrimSpace(rest[start+1 : start+end])
		params, remaining := cutEntry(rest[start+end+1:])
		rest = remaining

		link, ok := parseEntry(target, params)
		if ok {
			links = append(links, link)
		}
	}
}

// NextURL returns the target of the rel="next" entry of a Link header.
// It reports false when the header is empty, malformed or has no next entry.
func NextURL(header string) (string, bool) {
	return FindRel(ParseLinks(header), RelNext)
}

// FindRel returns the URL of the first link with the given relation.
func FindRel(links []Link, rel string) (string, bool) {
	for _, l := range links {
		if l.HasRel(rel) {
			return l.URL, true
		}
	}
	return "", false
}

// parseEntry builds a Link from its target and the raw parameter text
// that followed the closing angle bracket.
func parseEntry(target, rawParams string) (Link, bool) {
	if target == "" {
		return Link{}, false
	}

	rawParams = strings.TrimSpace(rawParams)
	if rawParams != "" && rawParams[0] != ';' {
		return Link{}, false
	}

	link := Link{URL: target, Params: map[string]string{}}
	for _, param := range splitOutsideQuotes(rawParams, ';') {
		param = strings.TrimSpace(param)
		if param == "" {
			continue
		}
		key, raw, _ := strings.Cut(param, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		value, ok := paramValue(strings.TrimSpace(raw))
		if !ok {
			return Link{}, false
		}
		if _, dup := link.Params[key]; dup {
			// RFC 5988: occurrences after the first are ignored.
			continue
		}
		link.Params[key] = value
	}

	rel, ok := link.Params["rel"]
	if !ok {
		return Link{}, false
	}
	link.Rels = strings.Fields(rel)
	if len(link.Rels) == 0 {
		return Link{}, false
	}

	return link, true
}

// paramValue returns a parameter value as a token or an unescaped quoted
// string. Unbalanced or stray quotes are rejected.
func paramValue(raw string) (string, bool) {
	if !strings.HasPrefix(raw, `"`) {
		return raw, !strings.Contains(raw, `"`)
	}

	var b strings.Builder
	for i := 1; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
			if i >= len(raw) {
				return "", false
			}
			b.WriteByte(raw[i])
		case '"':
			return b.String(), i == len(raw)-1
		default:
			b.WriteByte(raw[i])
		}
	}
	return "", false
}

// cutEntry splits s at the first comma outside a quoted string.
func cutEntry(s string) (entry, rest string) {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inQuotes {
				i++
			}
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				return s[:i], s[i+1:]
			}
		}
	}
	return s, ""
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	inQuotes := false
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inQuotes {
				i++
			}
		case '"':
			inQuotes = !inQuotes
		case sep:
			if !inQuotes {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}
