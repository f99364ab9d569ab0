package term

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"

	"territory/client/internal/mirror"
	"territory/client/internal/reconcile"
)

// FrameInterval is the redraw cadence (30 Hz). Frames are only drawn when
// something changed.
const FrameInterval = time.Second / 30

// Each grid cell is two terminal columns wide so cells look square.
const cellColumns = 2

const (
	glyphTerritory = '▒'
	glyphStarting  = '░'
	glyphTrail     = '•'
	glyphAvatar    = '@'
)

type Options struct {
	Screen Screen
	// LocalID returns the local player's id; the camera follows it.
	LocalID func() string
	// Status returns the text of the bottom status line.
	Status func() string
	// OnFrame runs once per frame tick, before drawing.
	OnFrame       func(ctx context.Context)
	FrameInterval time.Duration
}

type slot struct {
	view  mirror.PlayerView
	order uint64
}

// Renderer draws the mirrored players in a terminal. It is a
// reconcile.Sink; wrap it in a render.Queue so drawing never holds up
// instruction processing.
type Renderer struct {
	screen   Screen
	localID  func() string
	status   func() string
	onFrame  func(context.Context)
	interval time.Duration

	mu         sync.Mutex
	slots      map[*slot]struct{}
	nextOrder  uint64
	paused     bool
	dirty      bool
	lastStatus string
}

func NewRenderer(opts Options) *Renderer {
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = FrameInterval
	}
	return &Renderer{
		screen:   opts.Screen,
		localID:  opts.LocalID,
		status:   opts.Status,
		onFrame:  opts.OnFrame,
		interval: interval,
		slots:    make(map[*slot]struct{}),
		dirty:    true,
	}
}

func (r *Renderer) Mount(view mirror.PlayerView) reconcile.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextOrder++
	s := &slot{view: view, order: r.nextOrder}
	r.slots[s] = struct{}{}
	r.dirty = true
	return s
}

func (r *Renderer) Paint(h reconcile.Handle, view mirror.PlayerView) {
	s, ok := h.(*slot)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, live := r.slots[s]; !live {
		return
	}
	s.view = view
	r.dirty = true
}

func (r *Renderer) Unmount(h reconcile.Handle) {
	s, ok := h.(*slot)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, s)
	r.dirty = true
}

// SetPaused shows or hides the pause overlay.
func (r *Renderer) SetPaused(paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused != paused {
		r.paused = paused
		r.dirty = true
	}
}

// MarkDirty forces the next frame to redraw, e.g. after a resize.
func (r *Renderer) MarkDirty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = true
}

// Run draws frames until ctx is done.
func (r *Renderer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.onFrame != nil {
				r.onFrame(ctx)
			}
			if _, err := r.Frame(); err != nil {
				return err
			}
		}
	}
}

// Frame draws if anything changed since the last frame and reports
// whether it drew.
func (r *Renderer) Frame() (bool, error) {
	status := ""
	if r.status != nil {
		status = r.status()
	}
	r.mu.Lock()
	if !r.dirty && status == r.lastStatus {
		r.mu.Unlock()
		return false, nil
	}
	r.dirty = false
	r.lastStatus = status
	views := r.sortedViewsLocked()
	paused := r.paused
	r.mu.Unlock()

	return true, r.draw(views, status, paused)
}

func (r *Renderer) sortedViewsLocked() []mirror.PlayerView {
	slots := make([]*slot, 0, len(r.slots))
	for s := range r.slots {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].order < slots[j].order })
	views := make([]mirror.PlayerView, len(slots))
	for i, s := range slots {
		views[i] = s.view
	}
	return views
}

func (r *Renderer) draw(views []mirror.PlayerView, status string, paused bool) error {
	if r.screen == nil {
		return nil
	}
	width, height := r.screen.Size()
	if width <= 0 || height <= 0 {
		return nil
	}
	c := newCanvas(width, height)
	mapRows := height - 1
	origin := r.camera(views, width/cellColumns, mapRows)

	for _, v := range views {
		fg := Color(v.Color)
		for _, cell := range v.StartingCells() {
			c.fillCell(cell, origin, mapRows, glyphStarting, fg, termbox.ColorDefault)
		}
	}
	for _, v := range views {
		fg := Color(v.Color)
		center := v.CenterCell()
		for _, cell := range v.Territory.Cells() {
			if cell == center {
				c.fillCell(cell, origin, mapRows, ' ', fg, fg)
				continue
			}
			c.fillCell(cell, origin, mapRows, glyphTerritory, fg, termbox.ColorDefault)
		}
	}
	for _, v := range views {
		fg := Color(v.Color)
		for _, cell := range v.TrailCells() {
			c.markCell(cell, origin, mapRows, glyphTrail, fg)
		}
	}
	local := ""
	if r.localID != nil {
		local = r.localID()
	}
	for _, v := range views {
		fg := Color(v.Color) | termbox.AttrBold
		bg := termbox.ColorDefault
		if v.ID == local {
			fg, bg = termbox.ColorDefault|termbox.AttrBold, Color(v.Color)
		}
		x, y, ok := screenPos(v.Cell(), origin, mapRows)
		if !ok {
			continue
		}
		c.set(x, y, glyphAvatar, fg, bg)
		if v.Name != "" {
			c.text(x+cellColumns, y, width-x-cellColumns, v.Name, Color(v.Color), termbox.ColorDefault)
		}
	}

	c.text(0, height-1, width, status, termbox.ColorDefault|termbox.AttrReverse, termbox.ColorDefault)
	if paused {
		c.overlay([]string{"PAUSED", "", "Esc  resume", "q    quit"})
	}
	return c.blit(r.screen)
}

// camera picks the top-left cell so the local player sits mid-screen.
// Without a local player the map is drawn from the origin.
func (r *Renderer) camera(views []mirror.PlayerView, cols, rows int) mirror.Cell {
	if r.localID == nil {
		return mirror.Cell{}
	}
	id := r.localID()
	for _, v := range views {
		if v.ID == id && id != "" {
			at := v.Cell()
			return mirror.Cell{Row: at.Row - rows/2, Col: at.Col - cols/2}
		}
	}
	return mirror.Cell{}
}

func screenPos(cell, origin mirror.Cell, mapRows int) (int, int, bool) {
	row := cell.Row - origin.Row
	col := cell.Col - origin.Col
	if row < 0 || row >= mapRows || col < 0 {
		return 0, 0, false
	}
	return col * cellColumns, row, true
}

type termCell struct {
	ch     rune
	fg, bg termbox.Attribute
}

type canvas struct {
	width, height int
	cells         []termCell
}

func newCanvas(width, height int) *canvas {
	cells := make([]termCell, width*height)
	for i := range cells {
		cells[i].ch = ' '
	}
	return &canvas{width: width, height: height, cells: cells}
}

func (c *canvas) at(x, y int) *termCell {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return nil
	}
	return &c.cells[y*c.width+x]
}

func (c *canvas) set(x, y int, ch rune, fg, bg termbox.Attribute) {
	if tc := c.at(x, y); tc != nil {
		*tc = termCell{ch: ch, fg: fg, bg: bg}
	}
}

func (c *canvas) fillCell(cell, origin mirror.Cell, mapRows int, ch rune, fg, bg termbox.Attribute) {
	x, y, ok := screenPos(cell, origin, mapRows)
	if !ok {
		return
	}
	for i := 0; i < cellColumns; i++ {
		c.set(x+i, y, ch, fg, bg)
	}
}

// markCell draws a glyph in the cell's left column and keeps whatever
// background is already there.
func (c *canvas) markCell(cell, origin mirror.Cell, mapRows int, ch rune, fg termbox.Attribute) {
	x, y, ok := screenPos(cell, origin, mapRows)
	if !ok {
		return
	}
	if tc := c.at(x, y); tc != nil {
		tc.ch = ch
		tc.fg = fg
	}
}

// text writes s from (x, y), clipped to limit columns. Wide runes take two
// columns.
func (c *canvas) text(x, y, limit int, s string, fg, bg termbox.Attribute) {
	if limit <= 0 {
		return
	}
	s = runewidth.Truncate(s, limit, "…")
	for _, ch := range s {
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			continue
		}
		c.set(x, y, ch, fg, bg)
		for i := 1; i < w; i++ {
			c.set(x+i, y, 0, fg, bg)
		}
		x += w
	}
}

// overlay draws a boxed message in the middle of the canvas.
func (c *canvas) overlay(lines []string) {
	inner := 0
	for _, line := range lines {
		inner = max(inner, runewidth.StringWidth(line))
	}
	boxW, boxH := inner+4, len(lines)+2
	x0 := (c.width - boxW) / 2
	y0 := (c.height - boxH) / 2
	fg, bg := termbox.ColorWhite|termbox.AttrBold, termbox.ColorBlack
	for y := 0; y < boxH; y++ {
		for x := 0; x < boxW; x++ {
			ch := ' '
			switch {
			case (y == 0 || y == boxH-1) && (x == 0 || x == boxW-1):
				ch = '+'
			case y == 0 || y == boxH-1:
				ch = '-'
			case x == 0 || x == boxW-1:
				ch = '|'
			}
			c.set(x0+x, y0+y, ch, fg, bg)
		}
	}
	for i, line := range lines {
		pad := (inner - runewidth.StringWidth(line)) / 2
		c.text(x0+2+pad, y0+1+i, inner-pad, line, fg, bg)
	}
}

func (c *canvas) blit(s Screen) error {
	if err := s.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return err
	}
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			tc := c.cells[y*c.width+x]
			if tc.ch == 0 {
				continue
			}
			s.SetCell(x, y, tc.ch, tc.fg, tc.bg)
		}
	}
	return s.Flush()
}
