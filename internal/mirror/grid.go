package mirror

import "math"

// CellSize is the pixel edge of one territory cell. The server computes
// territory on the same scale, so this is part of the wire contract.
const CellSize = 20

// Point is a position in pixels.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Cell addresses one grid cell.
type Cell struct {
	Row int
	Col int
}

// CellOf converts a pixel position to its grid cell.
func CellOf(p Point) Cell {
	return Cell{
		Row: int(math.Floor(p.Y / CellSize)),
		Col: int(math.Floor(p.X / CellSize)),
	}
}

// Origin returns the pixel position of the cell's top-left corner.
func (c Cell) Origin() Point {
	return Point{X: float64(c.Col * CellSize), Y: float64(c.Row * CellSize)}
}

// Grid is a row-major boolean territory grid, Grid[row][col]. Rows may be
// ragged; anything outside the grid reads as false.
type Grid [][]bool

// At reports whether the cell is set. Out-of-range cells are unset.
func (g Grid) At(row, col int) bool {
	if row < 0 || row >= len(g) {
		return false
	}
	if col < 0 || col >= len(g[row]) {
		return false
	}
	return g[row][col]
}

// Contains reports whether c is set.
func (g Grid) Contains(c Cell) bool {
	return g.At(c.Row, c.Col)
}

// Count returns the number of set cells.
func (g Grid) Count() int {
	n := 0
	for _, row := range g {
		for _, set := range row {
			if set {
				n++
			}
		}
	}
	return n
}

// Cells returns the set cells in row-major order.
func (g Grid) Cells() []Cell {
	var cells []Cell
	for r, row := range g {
		for c, set := range row {
			if set {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}

// Clone returns a deep copy. A nil grid clones to nil.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for r, row := range g {
		out[r] = append([]bool(nil), row...)
	}
	return out
}

// Equal compares the set cells of two grids, ignoring trailing unset
// padding so a resized but otherwise identical grid compares equal.
func (g Grid) Equal(other Grid) bool {
	rows := max(len(g), len(other))
	for r := 0; r < rows; r++ {
		var a, b []bool
		if r < len(g) {
			a = g[r]
		}
		if r < len(other) {
			b = other[r]
		}
		cols := max(len(a), len(b))
		for c := 0; c < cols; c++ {
			if g.At(r, c) != other.At(r, c) {
				return false
			}
		}
	}
	return true
}

// Merge sets every cell set in delta, growing g as needed, and reports
// whether any cell changed.
func (g *Grid) Merge(delta Grid) bool {
	changed := false
	for r, row := range delta {
		for c, set := range row {
			if !set || g.At(r, c) {
				continue
			}
			g.grow(r, c)
			(*g)[r][c] = true
			changed = true
		}
	}
	return changed
}

// Revoke clears every cell set in delta and reports whether any cell changed.
func (g Grid) Revoke(delta Grid) bool {
	changed := false
	for r, row := range delta {
		for c, set := range row {
			if set && g.At(r, c) {
				g[r][c] = false
				changed = true
			}
		}
	}
	return changed
}

func (g *Grid) grow(row, col int) {
	for len(*g) <= row {
		*g = append(*g, nil)
	}
	if n := len((*g)[row]); n <= col {
		(*g)[row] = append((*g)[row], make([]bool, col+1-n)...)
	}
}
