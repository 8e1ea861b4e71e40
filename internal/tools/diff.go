package tools

import (
	"fmt"
	"strings"
)

// unifiedDiff renders a minimal unified diff between two file contents.
// Good enough for reporting tool edits back to the model; not a general
// purpose patch generator.
func unifiedDiff(path, before, after string) string {
	if before == after {
		return ""
	}
	a := splitLines(before)
	b := splitLines(after)

	ops := diffOps(a, b)

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n+++ %s\n", path, path)

	// Group ops into hunks with up to 3 lines of context.
	const ctx = 3
	i := 0
	for i < len(ops) {
		if ops[i].kind == opEqual {
			i++
			continue
		}
		// Hunk starts ctx ops before the first change.
		start := i - ctx
		if start < 0 {
			start = 0
		}
		end := i
		gap := 0
		for end < len(ops) {
			if ops[end].kind == opEqual {
				gap++
				if gap > ctx*2 {
					break
				}
			} else {
				gap = 0
			}
			end++
		}
		// Trim trailing context to at most ctx lines.
		trailing := 0
		for j := end - 1; j >= 0 && ops[j].kind == opEqual; j-- {
			trailing++
		}
		if trailing > ctx {
			end -= trailing - ctx
		}

		aStart, bStart := ops[start].aLine, ops[start].bLine
		var aCount, bCount int
		var body strings.Builder
		for j := start; j < end; j++ {
			switch ops[j].kind {
			case opEqual:
				body.WriteString(" " + ops[j].text + "\n")
				aCount++
				bCount++
			case opDelete:
				body.WriteString("-" + ops[j].text + "\n")
				aCount++
			case opInsert:
				body.WriteString("+" + ops[j].text + "\n")
				bCount++
			}
		}
		fmt.Fprintf(&out, "@@ -%d,%d +%d,%d @@\n", aStart+1, aCount, bStart+1, bCount)
		out.WriteString(body.String())
		i = end
	}
	return strings.TrimRight(out.String(), "\n")
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type diffOp struct {
	kind  opKind
	text  string
	aLine int
	bLine int
}

// diffOps computes a line-level edit script via LCS.
func diffOps(a, b []string) []diffOp {
	n, m := len(a), len(b)
	// lcs[i][j] = LCS length of a[i:], b[j:]
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}
	var ops []diffOp
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, diffOp{opEqual, a[i], i, j})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, diffOp{opDelete, a[i], i, j})
			i++
		default:
			ops = append(ops, diffOp{opInsert, b[j], i, j})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, diffOp{opDelete, a[i], i, j})
	}
	for ; j < m; j++ {
		ops = append(ops, diffOp{opInsert, b[j], i, j})
	}
	return ops
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
