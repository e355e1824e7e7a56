// Package outline implements structural operations on a page's block
// sequence. Hierarchy is never stored: a block's children are the contiguous
// run of following blocks with a strictly greater level, ending at the first
// block whose level is less than or equal to its own.
package outline

import (
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Position selects which side of the reorder target the block lands on.
type Position string

// Reorder positions.
const (
	Before Position = "before"
	After  Position = "after"
)

// MergeResult describes the outcome of DeleteOrMerge. When Changed is true,
// FocusID names the block that should receive focus and CursorOffset the
// rune offset within it.
type MergeResult struct {
	Changed      bool   `json:"changed"`
	FocusID      string `json:"focus_id,omitempty"`
	CursorOffset int    `json:"cursor_offset"`
}

func find(p *models.Page, blockID string) int {
	for i := range p.Blocks {
		if p.Blocks[i].ID == blockID {
			return i
		}
	}
	return -1
}

func touch(p *models.Page, i int) {
	now := time.Now().UTC()
	p.Blocks[i].UpdatedAt = now
	p.UpdatedAt = now
}

// ChildRun returns the half-open index range [start, end) of the descendant
// run of the block at index i.
func ChildRun(p *models.Page, i int) (int, int) {
	level := p.Blocks[i].Level
	end := i + 1
	for end < len(p.Blocks) && p.Blocks[end].Level > level {
		end++
	}
	return i + 1, end
}

// HasChildren reports whether the block at index i has a non-empty
// descendant run.
func HasChildren(p *models.Page, i int) bool {
	start, end := ChildRun(p, i)
	return end > start
}

// Visible returns the blocks not hidden by a collapsed ancestor. A collapsed
// block hides its entire descendant run; blocks revealed by expanding keep
// their own collapsed runs hidden.
func Visible(p *models.Page) []models.Block {
	out := make([]models.Block, 0, len(p.Blocks))
	for i := 0; i < len(p.Blocks); {
		out = append(out, p.Blocks[i])
		if p.Blocks[i].Collapsed {
			_, end := ChildRun(p, i)
			i = end
		} else {
			i++
		}
	}
	return out
}

// Indent deepens the target block by one level, capped at MaxLevel.
// Descendants keep their own levels.
func Indent(p *models.Page, blockID string) (bool, error) {
	i := find(p, blockID)
	if i < 0 {
		return false, apperr.ErrNotFound
	}
	if p.Blocks[i].Level >= models.MaxLevel {
		return false, nil
	}
	p.Blocks[i].Level++
	touch(p, i)
	return true, nil
}

// Outdent shallows the target block by one level, floored at 0. The target's
// effective parent may change because parentage is derived, not stored.
func Outdent(p *models.Page, blockID string) (bool, error) {
	i := find(p, blockID)
	if i < 0 {
		return false, apperr.ErrNotFound
	}
	if p.Blocks[i].Level <= 0 {
		return false, nil
	}
	p.Blocks[i].Level--
	touch(p, i)
	return true, nil
}

// Collapse hides the target's descendant run from visibility queries.
// The descendants themselves are untouched.
func Collapse(p *models.Page, blockID string) (bool, error) {
	return setCollapsed(p, blockID, true)
}

// Expand reveals the immediate next level of descendants. Revealed blocks
// that are themselves collapsed keep their own runs hidden.
func Expand(p *models.Page, blockID string) (bool, error) {
	return setCollapsed(p, blockID, false)
}

func setCollapsed(p *models.Page, blockID string, collapsed bool) (bool, error) {
	i := find(p, blockID)
	if i < 0 {
		return false, apperr.ErrNotFound
	}
	if p.Blocks[i].Collapsed == collapsed {
		return false, nil
	}
	p.Blocks[i].Collapsed = collapsed
	touch(p, i)
	return true, nil
}

// InsertAfter creates a new empty block of the given type immediately after
// afterID, at the same level as that block. An empty afterID inserts at the
// start of the sequence at level 0. Returns the new block.
func InsertAfter(p *models.Page, afterID string, t models.BlockType) (models.Block, error) {
	if t == "" {
		t = models.TypeParagraph
	}
	if !models.ValidBlockType(t) {
		return models.Block{}, apperr.ErrInvalidState
	}

	nb := models.NewBlock(t)
	at := 0
	if afterID != "" {
		i := find(p, afterID)
		if i < 0 {
			return models.Block{}, apperr.ErrNotFound
		}
		nb.Level = p.Blocks[i].Level
		at = i + 1
	}

	p.Blocks = append(p.Blocks, models.Block{})
	copy(p.Blocks[at+1:], p.Blocks[at:])
	p.Blocks[at] = nb
	p.UpdatedAt = time.Now().UTC()
	return nb, nil
}

// DeleteOrMerge removes an empty block, merging focus into its predecessor.
// A block with content is left alone (Unchanged). Removing the only block of
// a page is refused.
func DeleteOrMerge(p *models.Page, blockID string) (MergeResult, error) {
	i := find(p, blockID)
	if i < 0 {
		return MergeResult{}, apperr.ErrNotFound
	}
	if p.Blocks[i].Content != "" {
		return MergeResult{}, nil
	}
	if len(p.Blocks) <= 1 {
		// A page must keep at least one block.
		return MergeResult{}, nil
	}

	res := MergeResult{Changed: true}
	if i > 0 {
		prev := p.Blocks[i-1]
		res.FocusID = prev.ID
		res.CursorOffset = len([]rune(prev.Content))
	} else {
		res.FocusID = p.Blocks[1].ID
	}

	p.Blocks = append(p.Blocks[:i], p.Blocks[i+1:]...)
	p.UpdatedAt = time.Now().UTC()
	return res, nil
}

// MoveUp swaps the block with its preceding neighbor. Levels travel with the
// blocks; no re-leveling happens.
func MoveUp(p *models.Page, blockID string) (bool, error) {
	i := find(p, blockID)
	if i < 0 {
		return false, apperr.ErrNotFound
	}
	if i == 0 {
		return false, nil
	}
	p.Blocks[i-1], p.Blocks[i] = p.Blocks[i], p.Blocks[i-1]
	touch(p, i-1)
	return true, nil
}

// MoveDown swaps the block with its following neighbor.
func MoveDown(p *models.Page, blockID string) (bool, error) {
	i := find(p, blockID)
	if i < 0 {
		return false, apperr.ErrNotFound
	}
	if i == len(p.Blocks)-1 {
		return false, nil
	}
	p.Blocks[i], p.Blocks[i+1] = p.Blocks[i+1], p.Blocks[i]
	touch(p, i+1)
	return true, nil
}

// Duplicate inserts a content- and level-identical copy immediately after the
// source, with a new id and fresh timestamps. If the source has descendants,
// the copy is placed between the source and its run and so adopts that run.
func Duplicate(p *models.Page, blockID string) (models.Block, error) {
	i := find(p, blockID)
	if i < 0 {
		return models.Block{}, apperr.ErrNotFound
	}

	cp := models.NewBlock(p.Blocks[i].Type)
	cp.Content = p.Blocks[i].Content
	cp.Level = p.Blocks[i].Level
	cp.Collapsed = p.Blocks[i].Collapsed

	p.Blocks = append(p.Blocks, models.Block{})
	copy(p.Blocks[i+2:], p.Blocks[i+1:])
	p.Blocks[i+1] = cp
	p.UpdatedAt = time.Now().UTC()
	return cp, nil
}

// Retype changes the block's type; content and level are preserved.
func Retype(p *models.Page, blockID string, t models.BlockType) (bool, error) {
	if !models.ValidBlockType(t) {
		return false, apperr.ErrInvalidState
	}
	i := find(p, blockID)
	if i < 0 {
		return false, apperr.ErrNotFound
	}
	if p.Blocks[i].Type == t {
		return false, nil
	}
	p.Blocks[i].Type = t
	touch(p, i)
	return true, nil
}

// Reorder removes the block from its current position and reinserts it
// immediately before or after targetID. The block's level is deliberately
// not recalculated to match its new neighbors; the moved block may end up
// with a level implying a parent inconsistent with its surroundings.
func Reorder(p *models.Page, blockID, targetID string, pos Position) (bool, error) {
	if pos != Before && pos != After {
		return false, apperr.ErrInvalidState
	}
	if blockID == targetID {
		return false, nil
	}
	i := find(p, blockID)
	if i < 0 {
		return false, apperr.ErrNotFound
	}
	if find(p, targetID) < 0 {
		return false, apperr.ErrNotFound
	}

	moved := p.Blocks[i]
	rest := append(p.Blocks[:i:i], p.Blocks[i+1:]...)

	j := 0
	for j = range rest {
		if rest[j].ID == targetID {
			break
		}
	}
	at := j
	if pos == After {
		at = j + 1
	}

	blocks := make([]models.Block, 0, len(rest)+1)
	blocks = append(blocks, rest[:at]...)
	blocks = append(blocks, moved)
	blocks = append(blocks, rest[at:]...)
	p.Blocks = blocks
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}
