package translation

import (
	"strings"
	"testing"
)

func TestParseIgnoresCommentsAndBlank(t *testing.T) {
	input := `# this is a header
@meta version=1

"hello"
"world"
`
	lines, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(lines) != 2 || lines[0] != "hello" || lines[1] != "world" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestParseStripsOuterCharacters(t *testing.T) {
	lines, err := Parse(strings.NewReader("'it''s quoted'\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(lines) != 1 || lines[0] != "it''s quoted" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestParseShortLine(t *testing.T) {
	lines, err := Parse(strings.NewReader("\"\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(lines) != 1 || lines[0] != "" {
		t.Fatalf("lines = %v", lines)
	}
}
