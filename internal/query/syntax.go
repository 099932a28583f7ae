package query

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// SyntaxError locates an ERROR or MISSING node of a parsed component.
// Line and Column are 0-indexed.
type SyntaxError struct {
	Line   uint32
	Column uint32
	Kind   string // "error" or "missing"
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: syntax %s", e.Line+1, e.Column+1, e.Kind)
}

// FirstSyntaxError returns the first ERROR or MISSING node under root in
// document order, or nil when the tree is clean.
func FirstSyntaxError(root *sitter.Node) *SyntaxError {
	if root == nil || !root.HasError() {
		return nil
	}
	n := firstErrorNode(root)
	if n == nil {
		return &SyntaxError{Kind: "error"}
	}
	kind := "error"
	if n.IsMissing() {
		kind = "missing"
	}
	return &SyntaxError{Line: n.StartPoint().Row, Column: n.StartPoint().Column, Kind: kind}
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := firstErrorNode(child); found != nil {
				return found
			}
		}
	}
	return nil
}
