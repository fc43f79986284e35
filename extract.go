package codeloop

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	// leadingFence matches an opening fence line with an optional language tag.
	leadingFence  = regexp.MustCompile("^\\s*```[ \\t]*(?:[A-Za-z0-9_+#.-]+[ \\t]*)?(?:\\r?\\n|$)")
	bareFence     = regexp.MustCompile("^\\s*```")
	trailingFence = regexp.MustCompile("```\\s*$")
	lineNumber    = regexp.MustCompile(`^\s*(\d+)\s*[|:.]?[ \t]?`)
)

// markdown parses model replies; only the block structure is used.
var markdown = goldmark.New()

// ExtractCode returns the body of the first fenced code block in a model
// reply, or the whole trimmed reply when it contains none.
func ExtractCode(raw string) string {
	source := []byte(raw)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var found *ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fb, ok := n.(*ast.FencedCodeBlock); ok {
			found = fb
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if found == nil {
		return strings.TrimSpace(raw)
	}

	var b strings.Builder
	lines := found.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(b.String())
}

// StripFences removes a leading fence line (with optional language tag) and a
// trailing fence from code, then trims surrounding whitespace.
func StripFences(code string) string {
	if loc := leadingFence.FindStringIndex(code); loc != nil {
		code = code[loc[1]:]
	} else {
		code = bareFence.ReplaceAllString(code, "")
	}
	code = trailingFence.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}

// StripLineNumbers removes editor-style line numbers ("1 | x = 1") from code.
// Numbers are stripped only when every non-blank line carries one and they
// count upward, so code that merely starts with a literal is left alone.
func StripLineNumbers(code string) string {
	lines := strings.Split(code, "\n")
	prev := -1
	numbered := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := lineNumber.FindStringSubmatch(line)
		if m == nil {
			return code
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= prev {
			return code
		}
		prev = n
		numbered++
	}
	if numbered < 2 {
		return code
	}
	for i, line := range lines {
		if loc := lineNumber.FindStringIndex(line); loc != nil {
			lines[i] = line[loc[1]:]
		}
	}
	return strings.Join(lines, "\n")
}

// CleanResponse strips fences and line numbers from a raw model reply and
// drops blank lines at both ends.
func CleanResponse(raw string) string {
	code := StripLineNumbers(StripFences(raw))
	return strings.Trim(code, "\r\n\t ")
}
