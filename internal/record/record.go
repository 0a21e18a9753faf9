// Package record defines the ClassificationRecord that flows from the
// classifier through the publication workflow into the document store,
// together with the category taxonomy it is validated against.
package record

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Section is a category code from the taxonomy.
type Section string

// Section codes referenced by code paths outside the taxonomy file.
const (
	SectionSecurity Section = "osint"
	SectionPrompts  Section = "prompts"
	SectionSystem   Section = "sys"
	SectionMobile   Section = "apk"
	SectionStudy    Section = "study"
	SectionDev      Section = "dev"
	SectionShop     Section = "shop"
	SectionFun      Section = "fun"
	SectionAI       Section = "ai"
	SectionCode     Section = "prog"
	SectionIdeas    Section = "ideas"
)

// URL sentinels. URLAbsent means the link is not known yet; URLPlaceholder
// means the entry deliberately has no link.
const (
	URLAbsent      = "MISSING"
	URLPlaceholder = "#"
)

// MaxNameChars bounds titles produced by the local classifiers.
const MaxNameChars = 60

// Record is the unit of work flowing through the pipeline.
// Optional fields use the empty string as their absent value.
type Record struct {
	Section     Section `json:"section"`
	Alternative Section `json:"alternative,omitempty"`
	Confidence  int     `json:"confidence"`
	Name        string  `json:"name"`
	Description string  `json:"desc"`
	URL         string  `json:"url"`
	Platform    string  `json:"platform,omitempty"`
	PromptBody  string  `json:"prompt_body,omitempty"`
}

// Marker returns the insertion marker for the record's section.
func (r *Record) Marker() string {
	return MarkerFor(r.Section)
}

// MarkerFor returns the document insertion marker for a section.
func MarkerFor(s Section) string {
	return fmt.Sprintf("<!-- INSERT_%s_HERE -->", strings.ToUpper(string(s)))
}

// Ambiguous reports whether the record carries a distinct alternative category.
func (r *Record) Ambiguous() bool {
	return r.Alternative != "" && r.Alternative != r.Section
}

// HasConcreteURL reports whether URL is a real link rather than a sentinel.
func (r *Record) HasConcreteURL() bool {
	return IsConcreteURL(r.URL)
}

// IsConcreteURL reports whether u is neither blank nor one of the sentinels.
func IsConcreteURL(u string) bool {
	u = strings.TrimSpace(u)
	return u != "" && u != URLAbsent && u != URLPlaceholder
}

// Clean enforces the record invariants against the taxonomy: a declared
// section, a non-blank URL, confidence within 0..100 and a prompt body only
// for prompt entries. Unknown alternatives are dropped.
func (r *Record) Clean(t *Taxonomy) {
	r.Section = t.Normalize(string(r.Section))

	if r.Alternative != "" {
		if alt, ok := t.Parse(string(r.Alternative)); ok {
			r.Alternative = alt
		} else {
			r.Alternative = ""
		}
	}

	if strings.TrimSpace(r.URL) == "" {
		r.URL = URLAbsent
	} else {
		r.URL = strings.TrimSpace(r.URL)
	}

	r.Confidence = min(max(r.Confidence, 0), 100)

	if r.Section != SectionPrompts {
		r.PromptBody = ""
	}

	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Platform = strings.TrimSpace(r.Platform)
}

// Truncate cuts s to at most n runes, appending suffix when it cut anything.
func Truncate(s string, n int, suffix string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + suffix
}
