package services

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/deepread-labs/deepread-core/internal/core/domain"
)

// Formatting limits for the citation block.
const (
	// excerptMaxLen is the length at which source excerpts are cut.
	excerptMaxLen = 150

	// summaryPageLimit is how many distinct pages the compact
	// summary line names before indicating more exist.
	summaryPageLimit = 3
)

// emptyAnswerText replaces a blank or whitespace-only backend answer.
const emptyAnswerText = "I couldn't find this information in the document."

// boldSpan matches a **text** emphasis span. The only inline markup
// recognised; this is intentionally not a markdown engine.
var boldSpan = regexp.MustCompile(`\*\*(.+?)\*\*`)

// numberedItem matches a numeric list marker like "1. ".
var numberedItem = regexp.MustCompile(`^\d+\.\s+`)

// FormatAnswer turns a raw answer string and optional source citations
// into display-safe HTML markup. The transformation is pure and
// deterministic: the same input always yields byte-identical output.
//
// Paragraphs split on blank-line boundaries. A paragraph whose lines
// carry a leading bullet ("- ", "* ") or numeric ("1. ") marker
// renders as a list; anything else renders as a single block. A
// **text** span becomes <strong>. All text captured from the answer
// or the excerpts is HTML-escaped before insertion.
func FormatAnswer(answer string, sources []domain.Source) string {
	text := strings.TrimSpace(strings.ReplaceAll(answer, "\r\n", "\n"))
	if text == "" {
		text = emptyAnswerText
	}

	var b strings.Builder
	b.WriteString(`<div class="ai-response">`)

	for _, para := range splitParagraphs(text) {
		writeParagraph(&b, para)
	}

	if len(sources) > 0 {
		writeSources(&b, sources)
	}

	b.WriteString(`</div>`)
	return b.String()
}

// splitParagraphs breaks text on blank-line boundaries,
// dropping paragraphs that are empty after trimming.
func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// writeParagraph renders one paragraph. Consecutive marker lines
// render as one list; anything else renders as a single block, so a
// paragraph like "Risks:\n- Market\n- FX" yields a block followed by
// a two-item list.
func writeParagraph(b *strings.Builder, para string) {
	lines := nonBlankLines(para)

	for i := 0; i < len(lines); {
		switch {
		case isBulleted(lines[i]):
			b.WriteString(`<ul class="response-list">`)
			for ; i < len(lines) && isBulleted(lines[i]); i++ {
				item := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(lines[i], "- "), "* "))
				fmt.Fprintf(b, `<li>%s</li>`, inlineMarkup(item))
			}
			b.WriteString(`</ul>`)

		case numberedItem.MatchString(lines[i]):
			b.WriteString(`<ol class="response-list">`)
			for ; i < len(lines) && numberedItem.MatchString(lines[i]); i++ {
				item := strings.TrimSpace(numberedItem.ReplaceAllString(lines[i], ""))
				fmt.Fprintf(b, `<li>%s</li>`, inlineMarkup(item))
			}
			b.WriteString(`</ol>`)

		default:
			var block []string
			for ; i < len(lines) && !isBulleted(lines[i]) && !numberedItem.MatchString(lines[i]); i++ {
				block = append(block, lines[i])
			}
			fmt.Fprintf(b, `<p class="response-paragraph">%s</p>`, inlineMarkup(strings.Join(block, " ")))
		}
	}
}

func isBulleted(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")
}

func nonBlankLines(para string) []string {
	var lines []string
	for _, line := range strings.Split(para, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// inlineMarkup escapes raw answer text, then renders **bold** spans.
// Escaping happens first so captured text can never introduce markup
// of its own.
func inlineMarkup(text string) string {
	escaped := html.EscapeString(text)
	return boldSpan.ReplaceAllString(escaped, `<strong>$1</strong>`)
}

// writeSources appends the compact citation block: a one-line summary
// of the distinct cited pages followed by one item per source with a
// truncated excerpt.
func writeSources(b *strings.Builder, sources []domain.Source) {
	pages := distinctPages(sources)

	noun := "sources"
	if len(pages) == 1 {
		noun = "source"
	}

	preview := pages
	more := ""
	if len(preview) > summaryPageLimit {
		preview = preview[:summaryPageLimit]
		more = "..."
	}

	b.WriteString(`<div class="answer-sources">`)
	fmt.Fprintf(b, `<div class="sources-summary">%d %s · Pages %s%s</div>`,
		len(pages), noun, html.EscapeString(strings.Join(preview, ", ")), more)

	for _, s := range sources {
		fmt.Fprintf(b,
			`<div class="source-item"><span class="source-page">Page %s</span><p class="source-excerpt">%s</p></div>`,
			html.EscapeString(s.Page), html.EscapeString(truncateExcerpt(s.Excerpt)))
	}
	b.WriteString(`</div>`)
}

// distinctPages returns the cited pages in first-seen order.
func distinctPages(sources []domain.Source) []string {
	seen := make(map[string]bool, len(sources))
	var pages []string
	for _, s := range sources {
		if !seen[s.Page] {
			seen[s.Page] = true
			pages = append(pages, s.Page)
		}
	}
	return pages
}

// truncateExcerpt cuts an excerpt at the display limit, rune-safe,
// appending an ellipsis marker when anything was cut.
func truncateExcerpt(excerpt string) string {
	excerpt = strings.TrimSpace(excerpt)
	runes := []rune(excerpt)
	if len(runes) <= excerptMaxLen {
		return excerpt
	}
	return strings.TrimSpace(string(runes[:excerptMaxLen])) + "..."
}
