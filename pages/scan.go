package pages

import "strings"

// The site's pages are hand-written from a small set of templates, so the
// scanners below look for known markers and read until the matching close
// instead of building a DOM.

// between returns the text after the first open and before the next close.
func between(s, open, close string) (string, bool) {
	i := strings.Index(s, open)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(open):]
	j := strings.Index(rest, close)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// allBetween returns every open...close span in document order.
func allBetween(s, open, close string) []string {
	var out []string
	for {
		i := strings.Index(s, open)
		if i < 0 {
			return out
		}
		s = s[i+len(open):]
		j := strings.Index(s, close)
		if j < 0 {
			return out
		}
		out = append(out, s[:j])
		s = s[j+len(close):]
	}
}

// imgAfter returns the value of the src attribute of the <img> that follows
// marker, allowing only whitespace in between.
func imgAfter(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	rest := strings.TrimLeft(s[i+len(marker):], " \t\r\n")
	if !strings.HasPrefix(rest, `<img src="`) {
		return "", false
	}
	rest = rest[len(`<img src="`):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// indexTag finds the next opening tag named by open ("<div") that is a whole
// tag name, so "<div" does not match "<divider".
func indexTag(s, open string) int {
	off := 0
	for {
		i := strings.Index(s[off:], open)
		if i < 0 {
			return -1
		}
		at := off + i
		next := at + len(open)
		if next >= len(s) {
			return -1
		}
		switch s[next] {
		case '>', ' ', '\t', '\n', '\r', '/':
			return at
		}
		off = next
	}
}

// matchClose returns the index of the close tag that balances an element
// whose content starts at from, or -1 if the document ends first.
func matchClose(s string, from int, tag string) int {
	open := "<" + tag
	closeTag := "</" + tag + ">"
	depth := 1
	i := from
	for i <= len(s) {
		nc := strings.Index(s[i:], closeTag)
		if nc < 0 {
			return -1
		}
		nc += i
		if no := indexTag(s[i:], open); no >= 0 && i+no < nc {
			depth++
			i += no + len(open)
			continue
		}
		depth--
		if depth == 0 {
			return nc
		}
		i = nc + len(closeTag)
	}
	return -1
}

// block returns the content of the element opened by marker, balanced on tag.
// marker must start the opening tag; it may or may not include the closing '>'.
func block(s, marker, tag string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	gt := strings.IndexByte(s[i:], '>')
	if gt < 0 {
		return "", false
	}
	start := i + gt + 1
	end := matchClose(s, start, tag)
	if end < 0 {
		return "", false
	}
	return s[start:end], true
}

// openTag returns the full opening tag that starts with marker.
func openTag(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	gt := strings.IndexByte(s[i:], '>')
	if gt < 0 {
		return "", false
	}
	return s[i : i+gt+1], true
}

// attr reads name="value" from a single tag.
func attr(tag, name string) (string, bool) {
	return between(tag, " "+name+`="`, `"`)
}

// tagsNamed returns every opening tag of the given element ("<img") in order.
func tagsNamed(s, open string) []string {
	var out []string
	for {
		i := indexTag(s, open)
		if i < 0 {
			return out
		}
		gt := strings.IndexByte(s[i:], '>')
		if gt < 0 {
			return out
		}
		out = append(out, s[i:i+gt+1])
		s = s[i+gt+1:]
	}
}
