package segments

import (
	"context"
	"fmt"

	"vidkit/internal/media"
	"vidkit/internal/services"
	"vidkit/internal/sources"
)

// GridCell is one tile of a grid segment. Row and Col of -1 request
// automatic placement into the next free slot; spans below 1 are treated
// as 1.
type GridCell struct {
	Source  sources.Source
	Label   string
	Row     int
	Col     int
	RowSpan int
	ColSpan int
}

// NewGridCell returns an auto-placed single-slot cell.
func NewGridCell(src sources.Source) GridCell {
	return GridCell{Source: src, Row: -1, Col: -1, RowSpan: 1, ColSpan: 1}
}

// Grid composes several sources into a rows-by-cols layout over a solid
// background. Explicitly positioned cells claim their slots first; the rest
// fill remaining slots in declaration order.
type Grid struct {
	Base
	Cells      []GridCell
	Rows       int
	Cols       int
	Gap        int
	Length     float64
	Background media.Color
}

// NewGrid constructs a grid segment.
func NewGrid(id string, rows, cols int, duration float64) *Grid {
	return &Grid{
		Base:       NewBase(id),
		Rows:       rows,
		Cols:       cols,
		Gap:        12,
		Length:     duration,
		Background: media.ColorInk,
	}
}

// Add appends an auto-placed cell.
func (g *Grid) Add(src sources.Source) *Grid {
	g.Cells = append(g.Cells, NewGridCell(src))
	return g
}

// AddLabeled appends an auto-placed cell captioned along its bottom edge.
func (g *Grid) AddLabeled(src sources.Source, label string) *Grid {
	cell := NewGridCell(src)
	cell.Label = label
	g.Cells = append(g.Cells, cell)
	return g
}

// AddAt appends a cell pinned to a slot with optional spans.
func (g *Grid) AddAt(src sources.Source, row, col, rowSpan, colSpan int) *Grid {
	g.Cells = append(g.Cells, GridCell{Source: src, Row: row, Col: col, RowSpan: rowSpan, ColSpan: colSpan})
	return g
}

func (g *Grid) Duration(_ context.Context, _ *sources.RenderEnv) (float64, error) {
	if g.Length <= 0 {
		return 0, services.Wrap(services.ErrValidation, "segments", "grid", "grid segment "+g.ID()+" requires an explicit duration", nil)
	}
	return g.Length, nil
}

// placement is a resolved cell position in slot units.
type placement struct {
	cell             GridCell
	row, col         int
	rowSpan, colSpan int
}

// layout resolves every cell to a slot rectangle, or fails when cells
// collide or overflow the grid.
func (g *Grid) layout() ([]placement, error) {
	if g.Rows < 1 || g.Cols < 1 {
		return nil, services.Wrap(services.ErrValidation, "segments", "grid", fmt.Sprintf("grid %s has invalid shape %dx%d", g.ID(), g.Rows, g.Cols), nil)
	}
	if len(g.Cells) == 0 {
		return nil, services.Wrap(services.ErrValidation, "segments", "grid", "grid "+g.ID()+" has no cells", nil)
	}
	occupied := make([][]bool, g.Rows)
	for r := range occupied {
		occupied[r] = make([]bool, g.Cols)
	}
	claim := func(row, col, rowSpan, colSpan int) error {
		if row < 0 || col < 0 || row+rowSpan > g.Rows || col+colSpan > g.Cols {
			return fmt.Errorf("cell at %d,%d span %dx%d exceeds grid %dx%d", row, col, rowSpan, colSpan, g.Rows, g.Cols)
		}
		for r := row; r < row+rowSpan; r++ {
			for c := col; c < col+colSpan; c++ {
				if occupied[r][c] {
					return fmt.Errorf("cell collision at slot %d,%d", r, c)
				}
				occupied[r][c] = true
			}
		}
		return nil
	}

	placements := make([]placement, len(g.Cells))
	// Pinned cells claim slots first so auto placement flows around them.
	for i, cell := range g.Cells {
		if cell.Row < 0 || cell.Col < 0 {
			continue
		}
		rs, cs := spanOrOne(cell.RowSpan), spanOrOne(cell.ColSpan)
		if err := claim(cell.Row, cell.Col, rs, cs); err != nil {
			return nil, services.Wrap(services.ErrValidation, "segments", "grid", "grid "+g.ID()+": "+err.Error(), nil)
		}
		placements[i] = placement{cell: cell, row: cell.Row, col: cell.Col, rowSpan: rs, colSpan: cs}
	}
	for i, cell := range g.Cells {
		if cell.Row >= 0 && cell.Col >= 0 {
			continue
		}
		rs, cs := spanOrOne(cell.RowSpan), spanOrOne(cell.ColSpan)
		row, col, ok := findSlot(occupied, rs, cs)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "segments", "grid", fmt.Sprintf("grid %s has no free slot for cell %d", g.ID(), i), nil)
		}
		if err := claim(row, col, rs, cs); err != nil {
			return nil, services.Wrap(services.ErrValidation, "segments", "grid", "grid "+g.ID()+": "+err.Error(), nil)
		}
		placements[i] = placement{cell: cell, row: row, col: col, rowSpan: rs, colSpan: cs}
	}
	return placements, nil
}

func spanOrOne(span int) int {
	if span < 1 {
		return 1
	}
	return span
}

// findSlot scans row-major for the first position where the span fits.
func findSlot(occupied [][]bool, rowSpan, colSpan int) (int, int, bool) {
	rows, cols := len(occupied), len(occupied[0])
	for r := 0; r+rowSpan <= rows; r++ {
		for c := 0; c+colSpan <= cols; c++ {
			free := true
			for rr := r; rr < r+rowSpan && free; rr++ {
				for cc := c; cc < c+colSpan && free; cc++ {
					if occupied[rr][cc] {
						free = false
					}
				}
			}
			if free {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func (g *Grid) Render(ctx context.Context, env *sources.RenderEnv, out string) error {
	duration, err := g.Duration(ctx, env)
	if err != nil {
		return err
	}
	placements, err := g.layout()
	if err != nil {
		return err
	}
	width, height := env.Config.Width(), env.Config.Height()
	slotW := (width - (g.Cols+1)*g.Gap) / g.Cols
	slotH := (height - (g.Rows+1)*g.Gap) / g.Rows
	if slotW < 1 || slotH < 1 {
		return services.Wrap(services.ErrValidation, "segments", "grid", fmt.Sprintf("grid %s gap %d leaves no room at %dx%d", g.ID(), g.Gap, width, height), nil)
	}
	cells := make([]media.GridCell, 0, len(placements))
	for _, p := range placements {
		clip, err := p.cell.Source.Clip(ctx, env)
		if err != nil {
			return err
		}
		cells = append(cells, media.GridCell{
			Path:  clip.Path,
			Label: p.cell.Label,
			X:     g.Gap + p.col*(slotW+g.Gap),
			Y:     g.Gap + p.row*(slotH+g.Gap),
			W:     p.colSpan*slotW + (p.colSpan-1)*g.Gap,
			H:     p.rowSpan*slotH + (p.rowSpan-1)*g.Gap,
		})
	}
	return env.Tools.GridCompose(ctx, cells, width, height, duration, env.Config.FPS, g.Background, out)
}
