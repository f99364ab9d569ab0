package mirror

import "testing"

func TestCellOf(t *testing.T) {
	tests := []struct {
		p    Point
		want Cell
	}{
		{Point{0, 0}, Cell{0, 0}},
		{Point{19.9, 19.9}, Cell{0, 0}},
		{Point{20, 0}, Cell{0, 1}},
		{Point{40, 60}, Cell{3, 2}},
		{Point{-1, -21}, Cell{-2, -1}},
	}
	for _, tc := range tests {
		if got := CellOf(tc.p); got != tc.want {
			t.Errorf("CellOf(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}

func TestGridAtOutOfRange(t *testing.T) {
	g := Grid{{true}, {false, true}}
	if !g.At(0, 0) || !g.At(1, 1) {
		t.Fatalf("expected set cells to read true")
	}
	for _, c := range []Cell{{-1, 0}, {0, -1}, {0, 1}, {2, 0}, {3, 2}} {
		if g.Contains(c) {
			t.Errorf("expected %v to read false", c)
		}
	}
}

func TestGridMergeGrows(t *testing.T) {
	var g Grid
	if !g.Merge(Grid{nil, {false, false, true}}) {
		t.Fatalf("expected merge to report a change")
	}
	if !g.At(1, 2) {
		t.Fatalf("expected merged cell to be set, grid=%v", g)
	}
	if g.Merge(Grid{nil, {false, false, true}}) {
		t.Fatalf("expected second identical merge to be a no-op")
	}
	if g.Count() != 1 {
		t.Fatalf("expected one set cell, got %d", g.Count())
	}
}

func TestGridRevoke(t *testing.T) {
	g := Grid{{true, true}, {true, false}}
	if !g.Revoke(Grid{{false, true}, {false, false, true}}) {
		t.Fatalf("expected revoke to report a change")
	}
	if g.At(0, 1) {
		t.Fatalf("expected revoked cell to be cleared")
	}
	if !g.At(0, 0) || !g.At(1, 0) {
		t.Fatalf("expected untouched cells to survive: %v", g)
	}
	if g.Revoke(Grid{{false, true}}) {
		t.Fatalf("expected revoking an unset cell to be a no-op")
	}
}

func TestGridEqualIgnoresPadding(t *testing.T) {
	a := Grid{{true}}
	b := Grid{{true, false}, {false}}
	if !a.Equal(b) || !b.Equal(a) {
		t.Fatalf("expected padded grids to compare equal")
	}
	if a.Equal(Grid{{false}}) {
		t.Fatalf("expected different grids to compare unequal")
	}
}

func TestGridCloneIsDeep(t *testing.T) {
	g := Grid{{true}}
	c := g.Clone()
	c[0][0] = false
	if !g.At(0, 0) {
		t.Fatalf("clone shares storage with the original")
	}
	if Grid(nil).Clone() != nil {
		t.Fatalf("expected nil clone to stay nil")
	}
}

func TestPlayerViewHomeAndCells(t *testing.T) {
	v := PlayerView{
		Position:  Point{X: 45, Y: 25},
		Territory: Grid{nil, {false, false, true}},
	}
	if v.Cell() != (Cell{Row: 1, Col: 2}) {
		t.Fatalf("unexpected cell %v", v.Cell())
	}
	if !v.Home() {
		t.Fatalf("expected player to be home")
	}
	if v.CenterCell() != (Cell{Row: 0, Col: 1}) {
		t.Fatalf("unexpected center cell %v", v.CenterCell())
	}
}

func TestPlayerViewStartingCells(t *testing.T) {
	v := PlayerView{
		StartingPosition:  Point{X: 100, Y: 60},
		StartingTerritory: Grid{{true, false}, {false, true}},
	}
	cells := v.StartingCells()
	want := []Cell{{Row: 2, Col: 4}, {Row: 3, Col: 5}}
	if len(cells) != len(want) {
		t.Fatalf("expected %d cells, got %v", len(want), cells)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Fatalf("cell %d = %v, want %v", i, cells[i], want[i])
		}
	}
}

func TestPlayerViewTrailCellsDedup(t *testing.T) {
	v := PlayerView{Trail: []Point{{0, 0}, {5, 5}, {20, 0}, {0, 0}}}
	cells := v.TrailCells()
	if len(cells) != 3 {
		t.Fatalf("expected consecutive duplicates to collapse, got %v", cells)
	}
}

func TestPlayerViewCloneAndEqual(t *testing.T) {
	v := PlayerView{
		ID:        "p1",
		Trail:     []Point{{1, 2}},
		Territory: Grid{{true}},
	}
	c := v.Clone()
	if !v.Equal(&c) {
		t.Fatalf("expected clone to equal original")
	}
	c.Trail[0].X = 9
	if v.Trail[0].X != 1 {
		t.Fatalf("clone shares trail storage")
	}
	if v.Equal(&c) {
		t.Fatalf("expected modified clone to differ")
	}
}
