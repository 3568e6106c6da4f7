// internal/locator/hints.go

// Package locator extracts structured hints from CSS style selector strings.
// Hints are derived transiently for one healing pass and never persisted.
package locator

import "strings"

// SelectorHints is the structured decomposition of a (possibly broken)
// selector: whatever identifying fragments can still be salvaged from it.
type SelectorHints struct {
	Tag        string
	ID         string
	Classes    []string
	Text       string
	Attributes map[string]string
}

// HasClass reports whether the hint set contains the class name.
func (h SelectorHints) HasClass(name string) bool {
	for _, c := range h.Classes {
		if c == name {
			return true
		}
	}
	return false
}

// IsEmpty reports whether nothing useful was extracted.
func (h SelectorHints) IsEmpty() bool {
	return h.Tag == "" && h.ID == "" && len(h.Classes) == 0 &&
		h.Text == "" && len(h.Attributes) == 0
}

// ParseHints decomposes a selector into structured hints. Only the last
// compound segment of a combinator selector is considered, since that is
// the element the selector ultimately targets. A "text" attribute selector
// is carried as the text hint. Malformed input degrades to best effort
// hints; the parser never fails.
func ParseHints(selector string) SelectorHints {
	hints := SelectorHints{Attributes: map[string]string{}}
	segment := lastSegment(strings.TrimSpace(selector))
	if segment == "" {
		return hints
	}

	i := 0
	// Leading tag name, if any.
	start := i
	for i < len(segment) && !isDelimiter(segment[i]) {
		i++
	}
	if i > start {
		hints.Tag = strings.ToLower(segment[start:i])
	}

	for i < len(segment) {
		switch segment[i] {
		case '#':
			i++
			token, next := readToken(segment, i)
			if token != "" {
				hints.ID = token
			}
			i = next
		case '.':
			i++
			token, next := readToken(segment, i)
			if token != "" {
				hints.Classes = append(hints.Classes, token)
			}
			i = next
		case '[':
			name, value, next := readAttribute(segment, i+1)
			if name == "text" {
				hints.Text = value
			} else if name != "" {
				hints.Attributes[name] = value
			}
			i = next
		case ':':
			// Pseudo-classes and pseudo-elements carry no identity.
			i++
			_, i = readToken(segment, i)
			// Skip a parenthesised argument list if present.
			if i < len(segment) && segment[i] == '(' {
				depth := 0
				for ; i < len(segment); i++ {
					if segment[i] == '(' {
						depth++
					} else if segment[i] == ')' {
						depth--
						if depth == 0 {
							i++
							break
						}
					}
				}
			}
		default:
			i++
		}
	}
	return hints
}

// lastSegment returns the final compound selector of a combinator chain,
// ignoring separators that appear inside attribute brackets, pseudo-class
// arguments or quotes.
func lastSegment(selector string) string {
	start := 0
	depth := 0
	var quote byte
	for i := 0; i < len(selector); i++ {
		c := selector[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '(':
			depth++
		case ']', ')':
			if depth > 0 {
				depth--
			}
		case ' ', '>', '+', '~':
			if depth == 0 {
				start = i + 1
			}
		}
	}
	return strings.TrimSpace(selector[start:])
}

// readToken consumes an identifier starting at i and returns it with the
// index of the next unconsumed byte.
func readToken(s string, i int) (string, int) {
	start := i
	for i < len(s) && !isDelimiter(s[i]) && s[i] != '(' {
		i++
	}
	return s[start:i], i
}

// readAttribute consumes the inside of an [attr="value"] block starting just
// past the opening bracket. Bare [attr] and unquoted values are accepted.
func readAttribute(s string, i int) (name, value string, next int) {
	end := i
	var quote byte
	for end < len(s) {
		c := s[end]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			end++
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			end++
			continue
		}
		if c == ']' {
			break
		}
		end++
	}
	body := s[i:end]
	if end < len(s) {
		end++ // consume the closing bracket
	}

	eq := strings.IndexAny(body, "=")
	if eq < 0 {
		return strings.TrimSpace(body), "", end
	}
	name = strings.TrimSpace(body[:eq])
	// Tolerate ~=, ^=, $=, *= and |= by treating them all as equality hints.
	name = strings.TrimRight(name, "~^$*|")
	value = strings.TrimSpace(body[eq+1:])
	value = strings.Trim(value, `"'`)
	return name, value, end
}

func isDelimiter(c byte) bool {
	return c == '#' || c == '.' || c == '[' || c == ':'
}
