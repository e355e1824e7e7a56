// Package models defines the domain types for Ansuz.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxLevel is the deepest indentation level a block may have.
const MaxLevel = 5

// BlockType enumerates the fixed set of block content types.
type BlockType string

// Block types.
const (
	TypeParagraph BlockType = "paragraph"
	TypeHeading1  BlockType = "heading1"
	TypeHeading2  BlockType = "heading2"
	TypeHeading3  BlockType = "heading3"
	TypeQuote     BlockType = "quote"
	TypeCode      BlockType = "code"
	TypeListItem  BlockType = "list-item"
)

// BlockTypes lists every valid block type.
var BlockTypes = []BlockType{
	TypeParagraph, TypeHeading1, TypeHeading2, TypeHeading3,
	TypeQuote, TypeCode, TypeListItem,
}

// ValidBlockType reports whether t is one of the known block types.
func ValidBlockType(t BlockType) bool {
	for _, known := range BlockTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Block is the smallest addressable content unit in a page.
//
// A block's position in its page's slice is its visual order; hierarchy is
// derived from adjacent Level values and is never stored. A block's children
// are the maximal contiguous run of immediately-following blocks whose Level
// is strictly greater than its own.
type Block struct {
	ID        string    `json:"id"`
	Type      BlockType `json:"type"`
	Content   string    `json:"content"`
	Level     int       `json:"level"`
	Collapsed bool      `json:"collapsed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBlock creates an empty block of the given type at level 0.
func NewBlock(t BlockType) Block {
	now := time.Now().UTC()
	return Block{
		ID:        uuid.NewString(),
		Type:      t,
		Level:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy of the block. Blocks hold no reference fields, so the
// value copy is already deep; Clone exists for symmetry with Page and
// Workspace.
func (b Block) Clone() Block {
	return b
}
