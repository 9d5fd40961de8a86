package ast

import "testing"

// Test that NewBlock wraps a statement list without altering it.
func TestNewBlock(t *testing.T) {
	stmt := &Node{Kind: Null}
	block := NewBlock(stmt)

	if block.Kind != Block {
		t.Fatalf("expected a Block node, got %v", block.Kind)
	}
	if block.Body != stmt {
		t.Fatalf("expected Body to be the statement list passed in")
	}
}

// Test that an empty block is valid (a function or compound statement
// with no statements).
func TestNewBlockEmpty(t *testing.T) {
	block := NewBlock(nil)
	if block.Body != nil {
		t.Fatalf("expected a nil Body for an empty block")
	}
}
