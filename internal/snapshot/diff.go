package snapshot

import (
	"fmt"
	"sort"
	"strings"
)

// FieldChange is a watched field whose value differs between two snapshots.
type FieldChange struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Diff lists the fields that changed from prev to post, in field order.
// A nil side contributes empty values.
func Diff(prev, post Snapshot) []FieldChange {
	before := fieldsOf(prev)
	after := fieldsOf(post)

	order := make([]Field, 0, len(after))
	seen := map[string]bool{}
	for _, f := range append(append([]Field{}, before...), after...) {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		order = append(order, f)
	}

	beforeValues := valuesByName(before)
	afterValues := valuesByName(after)
	changes := make([]FieldChange, 0)
	for _, f := range order {
		if beforeValues[f.Name] == afterValues[f.Name] {
			continue
		}
		changes = append(changes, FieldChange{
			Name:   f.Name,
			Label:  f.Label,
			Before: beforeValues[f.Name],
			After:  afterValues[f.Name],
		})
	}
	return changes
}

// CanonicalText flattens the snapshot into deterministic lines suitable for diffing.
func CanonicalText(s Snapshot) []string {
	if s == nil {
		return nil
	}
	lines := []string{
		fmt.Sprintf("Kind: %s", s.Kind()),
		"Fields:",
	}
	for _, f := range s.Fields() {
		lines = append(lines, fmt.Sprintf("  %s: %q", f.Name, f.Value))
	}
	return lines
}

// UnifiedDiff renders a line diff between the canonical text of two snapshots.
func UnifiedDiff(prevLabel string, prev Snapshot, postLabel string, post Snapshot) string {
	return buildUnifiedDiff(prevLabel, postLabel, CanonicalText(prev), CanonicalText(post))
}

func fieldsOf(s Snapshot) []Field {
	if s == nil {
		return nil
	}
	return s.Fields()
}

func valuesByName(fields []Field) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type diffOp struct {
	prefix string
	line   string
}

func buildUnifiedDiff(prevLabel, postLabel string, prevLines, postLines []string) string {
	ops := diffLines(prevLines, postLines)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("--- %s\n", prevLabel))
	builder.WriteString(fmt.Sprintf("+++ %s\n", postLabel))
	builder.WriteString(fmt.Sprintf("@@ -1,%d +1,%d @@\n", len(prevLines), len(postLines)))
	for _, op := range ops {
		builder.WriteString(op.prefix)
		builder.WriteString(op.line)
		builder.WriteString("\n")
	}
	return builder.String()
}

// diffLines walks a longest-common-subsequence table to emit keep/remove/add operations.
func diffLines(prev, post []string) []diffOp {
	m, n := len(prev), len(post)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			switch {
			case prev[i] == post[j]:
				dp[i][j] = dp[i+1][j+1] + 1
			case dp[i+1][j] >= dp[i][j+1]:
				dp[i][j] = dp[i+1][j]
			default:
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	ops := make([]diffOp, 0, m+n)
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case prev[i] == post[j]:
			ops = append(ops, diffOp{prefix: " ", line: prev[i]})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			ops = append(ops, diffOp{prefix: "-", line: prev[i]})
			i++
		default:
			ops = append(ops, diffOp{prefix: "+", line: post[j]})
			j++
		}
	}
	for ; i < m; i++ {
		ops = append(ops, diffOp{prefix: "-", line: prev[i]})
	}
	for ; j < n; j++ {
		ops = append(ops, diffOp{prefix: "+", line: post[j]})
	}
	return ops
}
