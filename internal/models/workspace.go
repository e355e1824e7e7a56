package models

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is written into every workspace artifact.
const SchemaVersion = "1.0.0"

// Page is an ordered sequence of blocks with a title.
// A well-formed page always holds at least one block.
type Page struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Blocks    []Block   `json:"blocks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPage creates a page seeded with one empty paragraph block.
func NewPage(title string) *Page {
	now := time.Now().UTC()
	return &Page{
		ID:        uuid.NewString(),
		Title:     title,
		Blocks:    []Block{NewBlock(TypeParagraph)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	cp := *p
	cp.Blocks = make([]Block, len(p.Blocks))
	copy(cp.Blocks, p.Blocks)
	return &cp
}

// Repair reinstates the ≥1 block invariant on a page loaded from an older or
// hand-edited artifact. Returns true if the page was modified.
func (p *Page) Repair() bool {
	if len(p.Blocks) > 0 {
		return false
	}
	p.Blocks = []Block{NewBlock(TypeParagraph)}
	p.UpdatedAt = time.Now().UTC()
	return true
}

// Workspace is the full set of pages persisted together as one unit.
// Unlike a page, a workspace may be empty.
type Workspace struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Pages     map[string]*Page `json:"pages"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Version   string           `json:"version"`
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(name string) *Workspace {
	now := time.Now().UTC()
	return &Workspace{
		ID:        uuid.NewString(),
		Name:      name,
		Pages:     make(map[string]*Page),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   SchemaVersion,
	}
}

// DefaultWorkspace seeds the workspace written on first launch.
func DefaultWorkspace() *Workspace {
	ws := NewWorkspace("Ansuz Workspace")

	welcome := NewPage("Welcome")
	h1 := NewBlock(TypeHeading1)
	h1.Content = "Welcome to Ansuz"
	p := NewBlock(TypeParagraph)
	p.Content = "Compose pages from typed blocks. Indent to nest, collapse to focus."
	welcome.Blocks = []Block{h1, p}

	ws.Pages[welcome.ID] = welcome
	return ws
}

// Clone returns a deep copy of the workspace.
func (w *Workspace) Clone() *Workspace {
	cp := *w
	cp.Pages = make(map[string]*Page, len(w.Pages))
	for id, p := range w.Pages {
		cp.Pages[id] = p.Clone()
	}
	return &cp
}

// TotalBlocks counts blocks across all pages.
func (w *Workspace) TotalBlocks() int {
	n := 0
	for _, p := range w.Pages {
		n += len(p.Blocks)
	}
	return n
}

// Metadata summarizes a workspace without materializing page content.
type Metadata struct {
	Version      string    `json:"version"`
	LastModified time.Time `json:"last_modified"`
	TotalPages   int       `json:"total_pages"`
	TotalBlocks  int       `json:"total_blocks"`
	DataPath     string    `json:"data_path"`
}

// BackupRecord describes one backup artifact on disk.
type BackupRecord struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}
