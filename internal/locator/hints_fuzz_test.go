// internal/locator/hints_fuzz_test.go
//go:build go1.18
// +build go1.18

package locator

import (
	"strings"
	"testing"
)

func FuzzParseHints(f *testing.F) {
	seeds := []string{
		"#submit",
		"button.cta-primary",
		"input#email.form-control.required",
		`button[data-testid="checkout"]`,
		"nav > ul li a.menu-link",
		"tr:nth-child(2n+1)",
		`div[data-path="a > b"] span.hit`,
		"[=",
		`[attr="unterminated`,
		"a:not(",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, selector string) {
		// The parser must never panic and must uphold its own invariants.
		hints := ParseHints(selector)

		if hints.Tag != strings.ToLower(hints.Tag) {
			t.Errorf("tag not lowercased: %q", hints.Tag)
		}
		for _, c := range hints.Classes {
			if c == "" {
				t.Error("empty class extracted")
			}
			if !hints.HasClass(c) {
				t.Errorf("HasClass(%q) false for extracted class", c)
			}
		}
		if hints.Attributes == nil {
			t.Error("attributes map must never be nil")
		}
		if strings.TrimSpace(selector) == "" && !hints.IsEmpty() {
			t.Errorf("blank selector produced hints: %+v", hints)
		}
	})
}
