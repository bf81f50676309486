package schema

import "fmt"

// TextBlock is an inclusive range of 1-based lines.
type TextBlock struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewTextBlock validates and returns a text block.
func NewTextBlock(start, end int) (TextBlock, error) {
	if start < 1 {
		return TextBlock{}, fmt.Errorf("start line of text block must be >= 1, got %d", start)
	}
	if end < start {
		return TextBlock{}, fmt.Errorf("end line of text block (%d) must be >= start line (%d)", end, start)
	}
	return TextBlock{Start: start, End: end}, nil
}

// Contains reports whether line is within the block.
func (b TextBlock) Contains(line int) bool {
	return line >= b.Start && line <= b.End
}

// Lines returns every line number of the block.
func (b TextBlock) Lines() []int {
	lines := make([]int, 0, b.End-b.Start+1)
	for l := b.Start; l <= b.End; l++ {
		lines = append(lines, l)
	}
	return lines
}

func (b TextBlock) String() string {
	return fmt.Sprintf("[%d,%d]", b.Start, b.End)
}

// Duplicate is one side of a duplication relation, other than the original.
type Duplicate interface {
	TextBlock() TextBlock
}

// InnerDuplicate is a duplicate located in the same file as the original.
type InnerDuplicate struct {
	Block TextBlock
}

// TextBlock implements Duplicate.
func (d InnerDuplicate) TextBlock() TextBlock { return d.Block }

// InProjectDuplicate is a duplicate located in another file of the same analysis.
type InProjectDuplicate struct {
	FileRef int
	Block   TextBlock
}

// TextBlock implements Duplicate.
func (d InProjectDuplicate) TextBlock() TextBlock { return d.Block }

// CrossProjectDuplicate is a duplicate located in a file of another project.
type CrossProjectDuplicate struct {
	FileKey string
	Block   TextBlock
}

// TextBlock implements Duplicate.
func (d CrossProjectDuplicate) TextBlock() TextBlock { return d.Block }

// Duplication anchors an original block and its duplicates.
type Duplication struct {
	Original   TextBlock
	Duplicates []Duplicate
}

// NewDuplication returns a duplication with at least one duplicate.
func NewDuplication(original TextBlock, duplicates ...Duplicate) (Duplication, error) {
	if len(duplicates) == 0 {
		return Duplication{}, fmt.Errorf("duplication of %s has no duplicate", original)
	}
	return Duplication{Original: original, Duplicates: duplicates}, nil
}
