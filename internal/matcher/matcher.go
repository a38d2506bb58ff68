// Package matcher compiles a set of literal keywords into a single search
// predicate over message text.
//
// Keywords are literal text: special regex syntax is escaped before compiling.
// Whole-word mode anchors each keyword between non-word characters, where a word
// character is any Unicode letter, digit or underscore, so Cyrillic and other
// scripts get the same boundaries as ASCII. Text and keywords are NFC-normalized
// before comparison; stored text is never modified.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wasilibs/go-re2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	wordChars     = `\p{L}\p{N}_`
	leftBoundary  = `(?:^|[^` + wordChars + `])`
	rightBoundary = `(?:$|[^` + wordChars + `])`
)

// Options control how keywords are compared with text.
type Options struct {
	CaseSensitive bool
	WholeWords    bool
}

// InvalidPatternError is returned when a keyword cannot be compiled.
type InvalidPatternError struct {
	Keyword string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid keyword %q: %v", e.Keyword, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// Matcher evaluates a compiled keyword set. The zero value and a Matcher built
// from an empty keyword set match every text; use Empty to tell the two
// "everything passes" cases apart from a real filter.
//
// A Matcher is not safe for concurrent use.
type Matcher struct {
	keywords []string
	opts     Options
	combined *re2.Regexp
	each     []*re2.Regexp
	folded   []string // keywords in comparison form
	fold     cases.Caser
}

// New compiles keywords. Duplicates are dropped, first occurrence wins.
func New(keywords []string, opts Options) (*Matcher, error) {
	m := &Matcher{opts: opts, fold: cases.Fold()}

	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		m.keywords = append(m.keywords, kw)
	}

	if len(m.keywords) == 0 {
		return m, nil
	}

	parts := make([]string, 0, len(m.keywords))
	for _, kw := range m.keywords {
		if strings.TrimSpace(kw) == "" {
			return nil, &InvalidPatternError{Keyword: kw, Err: fmt.Errorf("keyword is empty")}
		}

		expr := m.expression(kw)
		re, err := re2.Compile(expr)
		if err != nil {
			return nil, &InvalidPatternError{Keyword: kw, Err: err}
		}
		m.each = append(m.each, re)
		m.folded = append(m.folded, m.normalize(kw))
		parts = append(parts, "(?:"+expr+")")
	}

	combined, err := re2.Compile(strings.Join(parts, "|"))
	if err != nil {
		return nil, &InvalidPatternError{Keyword: strings.Join(m.keywords, ", "), Err: err}
	}
	m.combined = combined

	return m, nil
}

// MustNew is like New but panics on error. Intended for tests and constants.
func MustNew(keywords []string, opts Options) *Matcher {
	m, err := New(keywords, opts)
	if err != nil {
		panic(err)
	}
	return m
}

// normalize brings text into comparison form: NFC, and case-folded unless
// matching is case sensitive. Both modes compare folded text, so "STRASSE"
// finds "straße" with and without word boundaries.
func (m *Matcher) normalize(text string) string {
	text = norm.NFC.String(text)
	if m.opts.CaseSensitive {
		return text
	}
	return m.fold.String(text)
}

func (m *Matcher) expression(kw string) string {
	lit := regexp.QuoteMeta(m.normalize(kw))
	if m.opts.WholeWords {
		return leftBoundary + lit + rightBoundary
	}
	return lit
}

// Empty reports whether the matcher has no keywords and therefore never excludes.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.keywords) == 0
}

// Keywords returns the deduplicated keyword list in input order.
func (m *Matcher) Keywords() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keywords...)
}

// Match reports whether text contains any keyword. An empty matcher matches everything.
func (m *Matcher) Match(text string) bool {
	if m.Empty() {
		return true
	}
	text = m.normalize(text)

	if !m.opts.WholeWords {
		for _, kw := range m.folded {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
	return m.combined.MatchString(text)
}

// MatchedKeywords returns the keywords found in text, in input order.
func (m *Matcher) MatchedKeywords(text string) []string {
	if m.Empty() {
		return nil
	}
	text = m.normalize(text)

	var matched []string
	for i, kw := range m.keywords {
		var hit bool
		if m.opts.WholeWords {
			hit = m.each[i].MatchString(text)
		} else {
			hit = strings.Contains(text, m.folded[i])
		}
		if hit {
			matched = append(matched, kw)
		}
	}
	return matched
}
