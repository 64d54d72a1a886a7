package plotting

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot/palette"
)

var ErrBadColorMap = errors.New("plotting: invalid color map")

type colorStop struct {
	pos     float64
	r, g, b float64
}

// Segmented is a piecewise linear color map. Stops sit at normalized
// positions in [0, 1]; two stops at the same position make a hard edge.
type Segmented struct {
	stops    []colorStop
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*Segmented)(nil)

// NewSegmented spaces colors evenly over [0, 1] when positions is nil.
// Otherwise positions must be non-decreasing, start at 0 and end at 1.
func NewSegmented(colors []color.Color, positions []float64) (*Segmented, error) {
	if len(colors) < 2 {
		return nil, fmt.Errorf("%d colors: %w", len(colors), ErrBadColorMap)
	}
	if positions == nil {
		positions = make([]float64, len(colors))
		for i := range positions {
			positions[i] = float64(i) / float64(len(colors)-1)
		}
	}
	if len(positions) != len(colors) {
		return nil, fmt.Errorf("%d positions for %d colors: %w", len(positions), len(colors), ErrBadColorMap)
	}
	if positions[0] != 0 || positions[len(positions)-1] != 1 {
		return nil, fmt.Errorf("positions must run from 0 to 1: %w", ErrBadColorMap)
	}

	stops := make([]colorStop, len(colors))
	for i, c := range colors {
		if i > 0 && positions[i] < positions[i-1] {
			return nil, fmt.Errorf("position %d decreases: %w", i, ErrBadColorMap)
		}
		r, g, b, _ := c.RGBA()
		stops[i] = colorStop{
			pos: positions[i],
			r:   float64(r) / math.MaxUint16,
			g:   float64(g) / math.MaxUint16,
			b:   float64(b) / math.MaxUint16,
		}
	}
	return &Segmented{stops: stops, max: 1, alpha: 1}, nil
}

// LoadCPT reads a GMT color palette table from path.
func LoadCPT(path string) (*Segmented, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCPT(f)
}

// ParseCPT reads GMT color palette table lines of the form
// "z0 r0 g0 b0 z1 r1 g1 b1". Components are 0-255 RGB, or H (degrees) S V
// when a comment declares COLOR_MODEL = HSV. Background, foreground and NaN
// lines are ignored. The z range becomes the map's initial Min and Max.
func ParseCPT(r io.Reader) (*Segmented, error) {
	hsv := false
	var z []float64
	var colors []color.Color

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			if strings.HasSuffix(strings.ToUpper(text), "HSV") {
				hsv = true
			}
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "B", "F", "N":
			continue
		}
		if len(fields) < 8 {
			return nil, fmt.Errorf("cpt line %d: want 8 fields, got %d: %w", line, len(fields), ErrBadColorMap)
		}
		var v [8]float64
		for i := range v {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("cpt line %d: %w", line, err)
			}
			v[i] = f
		}
		for _, seg := range [][4]float64{{v[0], v[1], v[2], v[3]}, {v[4], v[5], v[6], v[7]}} {
			z = append(z, seg[0])
			colors = append(colors, cptColor(seg[1], seg[2], seg[3], hsv))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(z) < 2 || z[len(z)-1] <= z[0] {
		return nil, fmt.Errorf("cpt: no usable color range: %w", ErrBadColorMap)
	}

	pos := make([]float64, len(z))
	for i := range z {
		pos[i] = (z[i] - z[0]) / (z[len(z)-1] - z[0])
	}
	pos[len(pos)-1] = 1
	s, err := NewSegmented(colors, pos)
	if err != nil {
		return nil, err
	}
	s.min, s.max = z[0], z[len(z)-1]
	return s, nil
}

func cptColor(a, b, c float64, hsv bool) color.Color {
	if hsv {
		return palette.HSVA{H: math.Mod(a, 360) / 360, S: b, V: c, A: 1}
	}
	return color.NRGBA{R: clampByte(a), G: clampByte(b), B: clampByte(c), A: 255}
}

func clampByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

func (s *Segmented) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < s.min:
		return nil, palette.ErrUnderflow
	case v > s.max:
		return nil, palette.ErrOverflow
	}
	t := 0.0
	if s.max > s.min {
		t = (v - s.min) / (s.max - s.min)
	}

	hi := len(s.stops) - 1
	for i := 1; i < len(s.stops); i++ {
		if t <= s.stops[i].pos {
			hi = i
			break
		}
	}
	a, b := s.stops[hi-1], s.stops[hi]
	f := 0.0
	if b.pos > a.pos {
		f = (t - a.pos) / (b.pos - a.pos)
	}
	lerp := func(x, y float64) uint8 { return uint8(math.Round(255 * s.alpha * (x + f*(y-x)))) }
	return color.RGBA{R: lerp(a.r, b.r), G: lerp(a.g, b.g), B: lerp(a.b, b.b), A: uint8(math.Round(255 * s.alpha))}, nil
}

func (s *Segmented) Max() float64 { return s.max }
func (s *Segmented) SetMax(v float64) { s.max = v }
func (s *Segmented) Min() float64 { return s.min }
func (s *Segmented) SetMin(v float64) { s.min = v }
func (s *Segmented) Alpha() float64 { return s.alpha }
func (s *Segmented) SetAlpha(a float64) {
	if a < 0 || a > 1 {
		panic("plotting: alpha out of range")
	}
	s.alpha = a
}

// Palette samples n evenly spaced colors from Min to Max.
func (s *Segmented) Palette(n int) palette.Palette {
	if n < 1 {
		n = 1
	}
	cs := make([]color.Color, n)
	for i := range cs {
		v := s.min
		switch {
		case i == n-1:
			v = s.max
		case n > 1:
			v += float64(i) / float64(n-1) * (s.max - s.min)
		}
		c, err := s.At(v)
		if err != nil {
			c = color.Transparent
		}
		cs[i] = c
	}
	return colorList(cs)
}

type colorList []color.Color

func (c colorList) Colors() []color.Color { return c }
