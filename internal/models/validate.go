package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks the structural invariants of a single block.
func (b Block) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ID, validation.Required),
		validation.Field(&b.Type, validation.By(func(any) error {
			if !ValidBlockType(b.Type) {
				return fmt.Errorf("unknown block type %q", b.Type)
			}
			return nil
		})),
		validation.Field(&b.Level, validation.Min(0), validation.Max(MaxLevel)),
	)
}

// Validate checks that the page is well formed: non-empty id, at least one
// block, every block valid.
func (p *Page) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Blocks, validation.Required, validation.Length(1, 0)),
	); err != nil {
		return err
	}
	for i, b := range p.Blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("block %d (%s): %w", i, b.ID, err)
		}
	}
	return nil
}

// Validate checks that the workspace deserialized to a well-formed state.
// Used by restore: a backup that fails here must not touch the live workspace.
func (w *Workspace) Validate() error {
	if err := validation.ValidateStruct(w,
		validation.Field(&w.ID, validation.Required),
		validation.Field(&w.Pages, validation.NotNil),
	); err != nil {
		return err
	}
	for id, p := range w.Pages {
		if p == nil {
			return fmt.Errorf("page %s: nil entry", id)
		}
		if p.ID != id {
			return fmt.Errorf("page %s: key does not match page id %s", id, p.ID)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("page %s: %w", id, err)
		}
	}
	return nil
}
