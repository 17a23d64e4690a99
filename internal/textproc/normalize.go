// Package textproc provides the deterministic text cleanup and tokenization
// applied to court-decision documents before any modeling.
//
// The normalization pass is a fixed sequence of rule-based transforms: it
// repairs OCR artifacts, cuts a ruling down to its operative section, replaces
// statute names with canonical abbreviations, and redacts monetary amounts and
// long numeric identifiers that would otherwise flood the vocabulary with
// one-off tokens. Every transform is total over strings: a rule that finds no
// match leaves the text unchanged.
package textproc

import (
	"fmt"
	"regexp"
	"strings"
)

// Options controls the configurable normalization policies.
type Options struct {
	// NumDigits is the minimum digit-run length replaced by the NUM token.
	// Shorter numbers (statute and article references) are preserved since
	// they carry semantic content.
	NumDigits int

	// CollapseOrgs enables rewriting of organization-name long forms to
	// their abbreviations (e.g. "общество с ограниченной ответственностью"
	// becomes "ООО") and of quoted proper names to the ORG token.
	CollapseOrgs bool
}

// DefaultOptions returns the normalization policy used in production.
func DefaultOptions() Options {
	return Options{NumDigits: 5}
}

// replacement pairs a compiled pattern with its substitution text.
// Rules are applied in listed order; more specific patterns must precede
// general ones that would otherwise shadow them.
type replacement struct {
	re   *regexp.Regexp
	repl string
}

// wordRe builds a case-insensitive pattern with flexible internal whitespace.
func wordRe(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)` + strings.ReplaceAll(pattern, " ", `\s+`))
}

// codexRules maps the full names of Russian legal codes to their canonical
// short abbreviations.
var codexRules = []replacement{
	{regexp.MustCompile(`(?im)арбитражн[а-я]*[\s\-]+процессуальн[а-я]*\s+кодекс[а-я]*`), "АПК"},
	{regexp.MustCompile(`(?im)гражданск[а-я]*\s+кодекс[а-я]*`), "ГК"},
	{regexp.MustCompile(`(?im)налогов[а-я]*\s+кодекс[а-я]*`), "НК"},
	{regexp.MustCompile(`(?im)кодекс[а-я]*\s+административного\s+судопроизводства`), "КАС"},
	{regexp.MustCompile(`(?im)кодекс[а-я]*\s+(?:об\s+)?административн[а-я]*\s+правонарушени[а-я]*`), "КоАП"},
}

// orgRules collapses organization-name long forms. The generic "акционерное
// общество" rule must stay last so the prefixed forms win first.
var orgRules = []replacement{
	{wordRe(`обществ[а-я]+ с ограниченной ответственностью`), "ООО"},
	{wordRe(`открыто[а-я]+ акционерно[а-я]+ обществ[а-я]+`), "ОАО"},
	{wordRe(`закрыто[а-я]+ акционерно[а-я]+ обществ[а-я]+`), "ЗАО"},
	{wordRe(`публично[а-я]+ акционерно[а-я]+ обществ[а-я]+`), "ПАО"},
	{wordRe(`акционерно[а-я]+ обществ[а-я]+`), "АО"},
}

var (
	// capSpacesRe matches a run of two or more space-separated capital
	// letters followed by one more capital and a non-word boundary char --
	// a formatting artifact where names are rendered "И  В  А  Н  О  В".
	// The trailing non-word char keeps the rule from consuming lowercase
	// text that follows a legitimate single capital.
	capSpacesRe = regexp.MustCompile(`\s(?:[А-Я]\s+){2,}[А-Я][^0-9A-Za-zА-Яа-я_]`)

	// operativeStartRe drops everything up to and including the first
	// line-terminated "установил:" heading.
	operativeStartRe = regexp.MustCompile(`(?is)^.*?установил\s*:\s*\n`)

	// operativeEndRe drops everything from the first "решил:" heading on.
	operativeEndRe = regexp.MustCompile(`(?is)(?:\n|суд)\s*решил\s*:\s*\n.*$`)

	// midSentenceNewlineRe matches newlines preceded by a letter, digit,
	// quote or bracket: page-break artifacts, not semantic breaks.
	midSentenceNewlineRe = regexp.MustCompile(`([а-яА-Я,"«»()0-9])\s*\n+`)

	// moneyRe matches a digit sequence followed by a currency-unit word and
	// an optional kopeck remainder.
	moneyRe = regexp.MustCompile(`\d[\d\s]+(?:[,.]\d\d\s*)?руб(?:\.|л[а-я]+)(?:\s+\d\d\s*коп(?:\.|[а-я]+))?`)

	// quotedNameRe matches a quoted proper name, e.g. «Ромашка».
	quotedNameRe = regexp.MustCompile(`«[^»0-9]*»`)

	closedSessionRe = regexp.MustCompile(`(?i)в\s+закрытом\s+судебном\s+заседании`)
)

// Normalizer applies the full cleanup sequence to raw document text.
// The zero value is not usable; construct with NewNormalizer.
type Normalizer struct {
	opts  Options
	numRe *regexp.Regexp
}

// NewNormalizer creates a Normalizer with the given policy options.
func NewNormalizer(opts Options) *Normalizer {
	if opts.NumDigits <= 0 {
		opts.NumDigits = DefaultOptions().NumDigits
	}
	return &Normalizer{
		opts:  opts,
		numRe: regexp.MustCompile(fmt.Sprintf(`\d{%d,}`, opts.NumDigits)),
	}
}

// Normalize runs the rule-based cleanup over raw extracted document text.
// It is pure and deterministic; rules that find no match are no-ops, so the
// transform never fails.
func (n *Normalizer) Normalize(text string) string {
	text = strings.TrimSpace(text)
	text = fixCapSpaces(text)
	text = cutParts(text)

	for _, r := range codexRules {
		text = r.re.ReplaceAllString(text, r.repl)
	}

	text = midSentenceNewlineRe.ReplaceAllString(text, "$1 ")
	text = moneyRe.ReplaceAllString(text, "SUM")
	text = n.numRe.ReplaceAllString(text, "NUM")

	if n.opts.CollapseOrgs {
		for _, r := range orgRules {
			text = r.re.ReplaceAllString(text, r.repl)
		}
		text = quotedNameRe.ReplaceAllString(text, "ORG")
	}

	return text
}

// HasOperativePart reports whether the text contains the heading that opens
// the operative section of a ruling. Documents without it are malformed or
// irrelevant and must not enter the corpus.
func HasOperativePart(text string) bool {
	return operativeStartRe.MatchString(text)
}

// IsClosedSession reports whether the ruling was issued in closed session.
// Such documents are confidential and must not enter a public index.
func IsClosedSession(text string) bool {
	return closedSessionRe.MatchString(text)
}

// fixCapSpaces collapses spaced-out capital-letter runs, keeping the
// surrounding whitespace intact.
func fixCapSpaces(text string) string {
	return capSpacesRe.ReplaceAllStringFunc(text, func(m string) string {
		return " " + strings.ReplaceAll(strings.TrimLeft(m, " \t\n\r"), " ", "") + " "
	})
}

// cutParts extracts the operative section of a ruling: everything between the
// first "установил:" heading and the first "решил:" heading. A missing start
// marker leaves the whole text; a missing end marker keeps text to the end.
func cutParts(text string) string {
	text = operativeStartRe.ReplaceAllString(text, "")
	text = operativeEndRe.ReplaceAllString(text, "")
	return text
}
