package term

import (
	"strconv"
	"strings"

	"github.com/nsf/termbox-go"
)

// xterm-256 colour cube channel levels.
var cubeLevels = [6]int{0, 95, 135, 175, 215, 255}

var namedColors = map[string][3]int{
	"black":   {0, 0, 0},
	"white":   {255, 255, 255},
	"red":     {255, 0, 0},
	"green":   {0, 128, 0},
	"lime":    {0, 255, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"cyan":    {0, 255, 255},
	"magenta": {255, 0, 255},
	"orange":  {255, 165, 0},
	"purple":  {128, 0, 128},
	"pink":    {255, 192, 203},
	"gray":    {128, 128, 128},
	"grey":    {128, 128, 128},
}

// ParseColor understands #rgb, #rrggbb and a handful of CSS names, which
// covers what the server assigns.
func ParseColor(raw string) (r, g, b int, ok bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if rgb, found := namedColors[s]; found {
		return rgb[0], rgb[1], rgb[2], true
	}
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

func cubeIndex(c int) int {
	best, bestDist := 0, 1<<30
	for i, level := range cubeLevels {
		d := c - level
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// PaletteIndex maps a colour onto the 6x6x6 cube of the xterm-256 palette.
// Unparseable colours map to white (15).
func PaletteIndex(raw string) int {
	r, g, b, ok := ParseColor(raw)
	if !ok {
		return 15
	}
	return 16 + 36*cubeIndex(r) + 6*cubeIndex(g) + cubeIndex(b)
}

// Color is the termbox attribute for raw in Output256 mode, where palette
// entry n is Attribute(n+1).
func Color(raw string) termbox.Attribute {
	return termbox.Attribute(PaletteIndex(raw) + 1)
}
