package pyparser

import (
	"os"
	"regexp"
	"strings"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// Parser implements domain.SourceParser for Python sources. It is not a real
// Python parser: it builds a line-oriented outline (functions, loops, except
// handlers, with-blocks, call sites) by tracking indentation, with comments
// stripped and string literals blanked so analyzers match code, not prose.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) ParseFile(path string) (*domain.SourceFile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, src), nil
}

// Parse builds the outline of a Python source file. It never fails:
// malformed input degrades to whatever structure could be recovered.
func Parse(path string, src []byte) *domain.SourceFile {
	f := &domain.SourceFile{Path: path}

	raw := strings.Split(string(src), "\n")
	f.Lines = stripLines(raw)

	collectBlocks(f)
	collectCalls(f)
	return f
}

// stripLines produces, for each physical line, a Code form (comments
// stripped, string contents blanked) and a Text form (comments stripped,
// string contents kept). Triple-quoted strings are tracked across lines.
func stripLines(raw []string) []domain.SourceLine {
	lines := make([]domain.SourceLine, 0, len(raw))
	inTriple := false
	var tripleDelim string

	for i, r := range raw {
		code, text, nowInTriple, delim := stripLine(r, inTriple, tripleDelim)
		inTriple, tripleDelim = nowInTriple, delim
		lines = append(lines, domain.SourceLine{
			Num:    i + 1,
			Raw:    r,
			Code:   code,
			Text:   text,
			Indent: indentOf(r, code),
		})
	}
	return lines
}

// indentOf returns the indentation width of a code-bearing line, or -1 for
// blank and comment-only lines (they never close a block).
func indentOf(raw, code string) int {
	if strings.TrimSpace(code) == "" {
		return -1
	}
	n := 0
	for _, ch := range raw {
		switch ch {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

func stripLine(line string, inTriple bool, tripleDelim string) (code, text string, stillTriple bool, delim string) {
	var codeB, textB strings.Builder
	i := 0
	for i < len(line) {
		if inTriple {
			if idx := strings.Index(line[i:], tripleDelim); idx >= 0 {
				textB.WriteString(line[i : i+idx])
				textB.WriteString(tripleDelim)
				codeB.WriteString(tripleDelim)
				i += idx + len(tripleDelim)
				inTriple = false
				continue
			}
			textB.WriteString(line[i:])
			i = len(line)
			continue
		}

		ch := line[i]
		switch {
		case ch == '#':
			// Comment runs to end of line.
			i = len(line)
		case ch == '\'' || ch == '"':
			q := string(ch)
			if strings.HasPrefix(line[i:], q+q+q) {
				inTriple = true
				tripleDelim = q + q + q
				codeB.WriteString(tripleDelim)
				textB.WriteString(tripleDelim)
				i += 3
				continue
			}
			// Single-line string: copy into text, blank in code.
			end := i + 1
			for end < len(line) {
				if line[end] == '\\' {
					end += 2
					continue
				}
				if line[end] == ch {
					break
				}
				end++
			}
			if end >= len(line) {
				// Unterminated; take the rest.
				textB.WriteString(line[i:])
				codeB.WriteString(q + q)
				i = len(line)
				continue
			}
			textB.WriteString(line[i : end+1])
			codeB.WriteString(q + q)
			i = end + 1
		default:
			codeB.WriteByte(ch)
			textB.WriteByte(ch)
			i++
		}
	}
	return codeB.String(), textB.String(), inTriple, tripleDelim
}

var (
	defRe       = regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	forRe       = regexp.MustCompile(`^\s*(?:async\s+)?for\s+.*:\s*$`)
	whileRe     = regexp.MustCompile(`^\s*while\s+.*:\s*$`)
	withRe      = regexp.MustCompile(`^\s*(?:async\s+)?with\s+.*:\s*$`)
	exceptRe    = regexp.MustCompile(`^\s*except(\s+[^:]+)?\s*:`)
	decoratorRe = regexp.MustCompile(`^\s*@([A-Za-z_][A-Za-z0-9_.]*)`)
)

func collectBlocks(f *domain.SourceFile) {
	lines := f.Lines
	for i := range lines {
		l := lines[i]
		if l.Indent < 0 {
			continue
		}

		switch {
		case defRe.MatchString(l.Code):
			m := defRe.FindStringSubmatch(l.Code)
			_, end := bodySpan(lines, i)
			f.Funcs = append(f.Funcs, domain.PyFunc{
				Name:       m[1],
				Start:      l.Num,
				End:        end,
				Decorators: decoratorsAbove(lines, i),
			})

		case forRe.MatchString(l.Code):
			bodyStart, end := bodySpan(lines, i)
			f.Loops = append(f.Loops, domain.Span{
				Kind: "for", Start: l.Num, BodyStart: bodyStart, End: end,
				Header: strings.TrimSpace(l.Code),
			})

		case whileRe.MatchString(l.Code):
			bodyStart, end := bodySpan(lines, i)
			f.Loops = append(f.Loops, domain.Span{
				Kind: "while", Start: l.Num, BodyStart: bodyStart, End: end,
				Header: strings.TrimSpace(l.Code),
			})

		case withRe.MatchString(l.Code):
			bodyStart, end := bodySpan(lines, i)
			f.Withs = append(f.Withs, domain.Span{
				Kind: "with", Start: l.Num, BodyStart: bodyStart, End: end,
				Header: strings.TrimSpace(l.Text),
			})

		case exceptRe.MatchString(l.Code):
			m := exceptRe.FindStringSubmatch(l.Code)
			bodyStart, end := bodySpan(lines, i)
			h := domain.Handler{
				Line:      l.Num,
				BodyStart: bodyStart,
				BodyEnd:   end,
			}
			exc := strings.TrimSpace(m[1])
			if exc == "" {
				h.Bare = true
			} else {
				h.Exception = exc
			}
			f.Handlers = append(f.Handlers, h)
		}
	}
}

// bodySpan returns the first and last line numbers of the block opened at
// header index i, determined by indentation. A header with no indented body
// spans just itself.
func bodySpan(lines []domain.SourceLine, i int) (bodyStart, end int) {
	header := lines[i]
	end = header.Num
	bodyStart = 0
	for j := i + 1; j < len(lines); j++ {
		l := lines[j]
		if l.Indent < 0 {
			continue
		}
		if l.Indent <= header.Indent {
			break
		}
		if bodyStart == 0 {
			bodyStart = l.Num
		}
		end = l.Num
	}
	if bodyStart == 0 {
		bodyStart = header.Num
	}
	return bodyStart, end
}

func decoratorsAbove(lines []domain.SourceLine, i int) []string {
	var decs []string
	for j := i - 1; j >= 0; j-- {
		code := strings.TrimSpace(lines[j].Code)
		if code == "" {
			continue
		}
		m := decoratorRe.FindStringSubmatch(code)
		if m == nil {
			break
		}
		decs = append([]string{m[1]}, decs...)
	}
	return decs
}

var (
	callRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_.]*)\s*\(`)

	// Keywords and definitions that look like calls but are not.
	notCalls = map[string]bool{
		"if": true, "elif": true, "while": true, "for": true,
		"return": true, "yield": true, "def": true, "class": true,
		"and": true, "or": true, "not": true, "in": true, "lambda": true,
		"except": true, "with": true, "assert": true, "raise": true,
	}
)

func collectCalls(f *domain.SourceFile) {
	for _, l := range f.Lines {
		if l.Indent < 0 && strings.TrimSpace(l.Code) == "" {
			continue
		}
		code := l.Code
		if m := defRe.FindStringIndex(code); m != nil {
			// Don't record the function's own definition as a call.
			code = code[:m[0]]
		}
		for _, m := range callRe.FindAllStringSubmatch(code, -1) {
			name := m[1]
			if notCalls[name] {
				continue
			}
			f.Calls = append(f.Calls, domain.Call{Name: name, Line: l.Num})
		}
	}
}
