package tmuxtest

import "strings"

// Op names the comparison an explanation is rendered for.
type Op string

const (
	OpEqual    Op = "=="
	OpNotEqual Op = "!="
	OpIn       Op = "in"
)

const explainSeparator = "-------------"

// Explain renders a failed comparison between left and right as report
// lines. Both operands are split on newlines.
//
// For OpIn, left is the text that was looked for and right the text it was
// looked for in. Explain returns nil for any other Op.
func Explain(op Op, left, right string) []string {
	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")

	switch op {
	case OpEqual:
		return explainEqual(leftLines, rightLines)
	case OpNotEqual:
		lines := []string{"failed", "left and right are equal", explainSeparator}
		lines = append(lines, leftLines...)
		return append(lines, explainSeparator)
	case OpIn:
		lines := []string{"failed", explainSeparator}
		lines = append(lines, leftLines...)
		lines = append(lines, explainSeparator, "was not found in", explainSeparator)
		lines = append(lines, rightLines...)
		return append(lines, explainSeparator)
	default:
		return nil
	}
}

func explainEqual(left, right []string) []string {
	lines := []string{
		"failed",
		"> Common line",
		"- Left",
		"+ Right",
		explainSeparator,
	}

	n := max(len(left), len(right))
	for i := 0; i < n; i++ {
		hasLeft, hasRight := i < len(left), i < len(right)
		if hasLeft && hasRight && left[i] == right[i] {
			lines = append(lines, "> "+left[i])
			continue
		}
		if hasLeft {
			lines = append(lines, "- "+left[i])
		}
		if hasRight {
			lines = append(lines, "+ "+right[i])
		}
	}

	return append(lines, explainSeparator)
}
