package pyparser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/pyparser"
)

func TestParse_FunctionSpan(t *testing.T) {
	src := "def process(data):\n" +
		"    x = 1\n" +
		"    return x\n" +
		"\n" +
		"def other():\n" +
		"    pass\n"

	f := pyparser.Parse("test.py", []byte(src))

	require.Len(t, f.Funcs, 2)
	assert.Equal(t, "process", f.Funcs[0].Name)
	assert.Equal(t, 1, f.Funcs[0].Start)
	assert.Equal(t, 3, f.Funcs[0].End)
	assert.Equal(t, "other", f.Funcs[1].Name)
	assert.Equal(t, 5, f.Funcs[1].Start)
	assert.Equal(t, 6, f.Funcs[1].End)
}

func TestParse_NestedFunctionInnermostWins(t *testing.T) {
	src := "def outer():\n" +
		"    def inner():\n" +
		"        x = 1\n" +
		"    return inner\n"

	f := pyparser.Parse("test.py", []byte(src))

	require.Len(t, f.Funcs, 2)
	fn := f.FuncAt(3)
	require.NotNil(t, fn)
	assert.Equal(t, "inner", fn.Name)
}

func TestParse_BareExceptHandler(t *testing.T) {
	src := "try:\n" +
		"    x = 1 / 0\n" +
		"except:\n" +
		"    print(\"Error: \", x)\n"

	f := pyparser.Parse("test.py", []byte(src))

	require.Len(t, f.Handlers, 1)
	h := f.Handlers[0]
	assert.True(t, h.Bare)
	assert.Equal(t, 3, h.Line)
	assert.Equal(t, 4, h.BodyStart)
	assert.Equal(t, 4, h.BodyEnd)
}

func TestParse_TypedExceptHandler(t *testing.T) {
	src := "try:\n" +
		"    x = 1\n" +
		"except ValueError as e:\n" +
		"    raise\n"

	f := pyparser.Parse("test.py", []byte(src))

	require.Len(t, f.Handlers, 1)
	assert.False(t, f.Handlers[0].Bare)
	assert.Equal(t, "ValueError as e", f.Handlers[0].Exception)
}

func TestParse_StringContentsBlankedInCode(t *testing.T) {
	src := "url = \"https://example.com\"\n"

	f := pyparser.Parse("test.py", []byte(src))

	require.Len(t, f.Lines, 2) // trailing newline yields an empty line
	assert.Equal(t, "url = \"\"", f.Lines[0].Code)
	assert.Equal(t, "url = \"https://example.com\"", f.Lines[0].Text)
}

func TestParse_CommentsStripped(t *testing.T) {
	src := "x = 1  # sqlite3.connect in a comment\n"

	f := pyparser.Parse("test.py", []byte(src))

	assert.NotContains(t, f.Lines[0].Code, "sqlite3")
	assert.NotContains(t, f.Lines[0].Text, "sqlite3")
}

func TestParse_TripleQuotedDocstringIgnored(t *testing.T) {
	src := "def f():\n" +
		"    \"\"\"calls sqlite3.connect() in prose\"\"\"\n" +
		"    return 1\n"

	f := pyparser.Parse("test.py", []byte(src))

	assert.NotContains(t, f.Lines[1].Code, "sqlite3")
	// Text keeps the string contents for URL/path rules.
	assert.Contains(t, f.Lines[1].Text, "sqlite3")
}

func TestParse_LoopSpans(t *testing.T) {
	src := "for item in items:\n" +
		"    value = get_frame(item)\n" +
		"    use(value)\n" +
		"done()\n"

	f := pyparser.Parse("test.py", []byte(src))

	require.Len(t, f.Loops, 1)
	loop := f.Loops[0]
	assert.Equal(t, "for", loop.Kind)
	assert.Equal(t, 1, loop.Start)
	assert.Equal(t, 2, loop.BodyStart)
	assert.Equal(t, 3, loop.End)
}

func TestParse_CallsExtracted(t *testing.T) {
	src := "result = db.get_frames(limit)\n" +
		"if check(result):\n" +
		"    process(result)\n"

	f := pyparser.Parse("test.py", []byte(src))

	names := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "db.get_frames")
	assert.Contains(t, names, "check")
	assert.Contains(t, names, "process")
}

func TestParse_DefHeaderNotACall(t *testing.T) {
	src := "def get_frames(limit):\n" +
		"    pass\n"

	f := pyparser.Parse("test.py", []byte(src))

	for _, c := range f.Calls {
		assert.NotEqual(t, "get_frames", c.Name)
	}
}

func TestParse_Decorators(t *testing.T) {
	src := "@retry(tries=3)\n" +
		"@cached\n" +
		"def fetch():\n" +
		"    pass\n"

	f := pyparser.Parse("test.py", []byte(src))

	require.Len(t, f.Funcs, 1)
	assert.Equal(t, []string{"retry", "cached"}, f.Funcs[0].Decorators)
}

func TestParseFile_MissingFile(t *testing.T) {
	p := pyparser.New()
	_, err := p.ParseFile(filepath.Join(t.TempDir(), "nope.py"))
	assert.Error(t, err)
}

func TestParseFile_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.py")
	require.NoError(t, os.WriteFile(path, []byte("def f():\n    pass\n"), 0o644))

	p := pyparser.New()
	f, err := p.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, f.Funcs, 1)
	assert.Equal(t, "f", f.Funcs[0].Name)
}
