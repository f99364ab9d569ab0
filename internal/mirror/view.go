package mirror

import "slices"

// PlayerView is the client-side visual mirror of one player.
type PlayerView struct {
	ID       string
	Name     string
	Color    string
	Position Point
	// Trail holds the points to draw, most recent last. It is empty while
	// the player stands inside its own territory.
	Trail     []Point
	Territory Grid
	// StartingTerritory is set once and never replaced. Its cells are laid
	// out relative to StartingPosition.
	StartingTerritory Grid
	StartingPosition  Point
}

// Cell is the grid cell the player occupies.
func (v *PlayerView) Cell() Cell {
	return CellOf(v.Position)
}

// Home reports whether the player is inside its own territory.
func (v *PlayerView) Home() bool {
	return v.Territory.Contains(v.Cell())
}

// CenterCell is the territory cell drawn at full intensity under the
// avatar: the cell containing the avatar's center, half a cell up-left of
// its position.
func (v *PlayerView) CenterCell() Cell {
	return CellOf(Point{X: v.Position.X - CellSize/2, Y: v.Position.Y - CellSize/2})
}

// HasStartingTerritory reports whether the starting territory was set.
func (v *PlayerView) HasStartingTerritory() bool {
	return v.StartingTerritory != nil
}

// StartingCells returns the absolute cells of the starting territory.
// Cell (i, j) of the starting grid sits at pixel
// (start.x - 20 + j*20, start.y - 20 + i*20).
func (v *PlayerView) StartingCells() []Cell {
	var cells []Cell
	for _, rel := range v.StartingTerritory.Cells() {
		origin := Point{
			X: v.StartingPosition.X - CellSize + float64(rel.Col*CellSize),
			Y: v.StartingPosition.Y - CellSize + float64(rel.Row*CellSize),
		}
		cells = append(cells, CellOf(origin))
	}
	return cells
}

// TrailCells maps the visible trail onto grid cells, dropping consecutive
// duplicates.
func (v *PlayerView) TrailCells() []Cell {
	cells := make([]Cell, 0, len(v.Trail))
	for _, p := range v.Trail {
		c := CellOf(p)
		if n := len(cells); n > 0 && cells[n-1] == c {
			continue
		}
		cells = append(cells, c)
	}
	return cells
}

// Clone returns a deep copy safe to hand to an asynchronous sink.
func (v *PlayerView) Clone() PlayerView {
	out := *v
	out.Trail = slices.Clone(v.Trail)
	out.Territory = v.Territory.Clone()
	out.StartingTerritory = v.StartingTerritory.Clone()
	return out
}

// Equal reports whether two views would draw identically.
func (v *PlayerView) Equal(o *PlayerView) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.ID == o.ID &&
		v.Name == o.Name &&
		v.Color == o.Color &&
		samePoint(v.Position, o.Position) &&
		slices.EqualFunc(v.Trail, o.Trail, samePoint) &&
		v.Territory.Equal(o.Territory) &&
		v.HasStartingTerritory() == o.HasStartingTerritory() &&
		v.StartingTerritory.Equal(o.StartingTerritory) &&
		samePoint(v.StartingPosition, o.StartingPosition)
}

func samePoint(a, b Point) bool {
	return a == b
}
