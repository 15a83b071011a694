package domain

// FileCategory classifies a scanned source file by its role in the project.
type FileCategory string

const (
	CategoryProduction FileCategory = "production"
	CategoryScript     FileCategory = "script"
	CategoryTest       FileCategory = "test"
	CategoryDashboard  FileCategory = "dashboard"
)

// SourceFile is the analyzed outline of a single Python source file.
// Analyzers never see raw bytes; they work on this structure, which has
// comments stripped and string literals blanked so pattern matches inside
// comments and strings do not produce false positives.
type SourceFile struct {
	Path     string       `json:"path"`
	Category FileCategory `json:"category"`
	Lines    []SourceLine `json:"lines"`
	Funcs    []PyFunc     `json:"funcs"`
	Loops    []Span       `json:"loops"`
	Handlers []Handler    `json:"handlers"`
	Withs    []Span       `json:"withs"`
	Calls    []Call       `json:"calls"`
}

// SourceLine is one physical line of source. Code has comments stripped and
// string literal contents blanked; Text has comments stripped but string
// contents preserved (needed by rules that match URLs, paths and keys).
type SourceLine struct {
	Num    int    `json:"num"`
	Raw    string `json:"-"`
	Code   string `json:"code"`
	Text   string `json:"text"`
	Indent int    `json:"indent"`
}

// Span is a half-open region of lines [Start, End] belonging to one block.
type Span struct {
	Kind      string `json:"kind"`
	Start     int    `json:"start"`
	BodyStart int    `json:"body_start"`
	End       int    `json:"end"`
	Header    string `json:"header"`
}

// PyFunc is a function definition with its body extent.
type PyFunc struct {
	Name       string   `json:"name"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Decorators []string `json:"decorators,omitempty"`
}

// Handler is an except clause with its body extent.
type Handler struct {
	Bare      bool   `json:"bare"`
	Exception string `json:"exception,omitempty"`
	Line      int    `json:"line"`
	BodyStart int    `json:"body_start"`
	BodyEnd   int    `json:"body_end"`
}

// Call is a call site extracted from stripped code.
type Call struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// FuncAt returns the innermost function containing the given line, or nil.
func (f *SourceFile) FuncAt(line int) *PyFunc {
	var best *PyFunc
	for i := range f.Funcs {
		fn := &f.Funcs[i]
		if line >= fn.Start && line <= fn.End {
			if best == nil || fn.Start > best.Start {
				best = fn
			}
		}
	}
	return best
}

// CallsIn returns all call sites within the line range [start, end].
func (f *SourceFile) CallsIn(start, end int) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.Line >= start && c.Line <= end {
			out = append(out, c)
		}
	}
	return out
}

// LinesIn returns the source lines within the range [start, end].
func (f *SourceFile) LinesIn(start, end int) []SourceLine {
	var out []SourceLine
	for _, l := range f.Lines {
		if l.Num >= start && l.Num <= end {
			out = append(out, l)
		}
	}
	return out
}

// Selection is the budgeted set of files chosen for one scan.
type Selection struct {
	Root       string                 `json:"root"`
	Files      []SelectedFile         `json:"files"`
	Truncated  bool                   `json:"truncated"`
	TotalFound int                    `json:"total_found"`
	ByCategory map[FileCategory][]int `json:"-"`
}

// SelectedFile is one file chosen by the selector.
type SelectedFile struct {
	Path     string       `json:"path"`
	AbsPath  string       `json:"abs_path"`
	Category FileCategory `json:"category"`
	Size     int64        `json:"size"`
}
