package token

import "fmt"

// Position locates a byte in the source text. Line and Column are 1-based;
// Column counts bytes.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PositionAt computes the line/column position of offset in src.
// Offsets outside src are clamped.
func PositionAt(src string, offset int) Position {
	offset = max(0, min(offset, len(src)))
	line, lineStart := 1, 0
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return Position{Line: line, Column: offset - lineStart + 1, Offset: offset}
}
