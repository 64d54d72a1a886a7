package plotting

import (
	"fmt"
	"image"
	"image/color/palette"
	imgdraw "image/draw"
	"image/gif"
	"io"
	"os"
	"slices"
	"time"

	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/climate-lab/eofkit/internal/dataio"
)

// PatternAnimation renders one map per frame and writes them as a looping GIF.
// frames[t][i] belongs to grid[i]. All frames share one set of contour levels
// so colors are comparable over time. titles may be nil or hold one title per
// frame. A non-positive delay defaults to 50ms.
func (f Figure) PatternAnimation(w io.Writer, frames [][]float64, grid dataio.Grid, titles []string, delay time.Duration) error {
	if len(frames) == 0 {
		return ErrNoData
	}
	if titles != nil && len(titles) != len(frames) {
		return fmt.Errorf("plotting: %d titles for %d frames", len(titles), len(frames))
	}
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	levels := NiceLevels(slices.Concat(frames...), f.Levels)

	anim := &gif.GIF{}
	for t, frame := range frames {
		title := fmt.Sprintf("Step %d", t+1)
		if titles != nil {
			title = titles[t]
		}
		p, err := f.mapPlot(frame, grid, levels, title)
		if err != nil {
			return fmt.Errorf("frame %d: %w", t, err)
		}

		c := vgimg.New(f.Width, f.Height)
		p.Draw(draw.New(c))
		img := c.Image()
		pal := image.NewPaletted(img.Bounds(), palette.Plan9)
		imgdraw.Draw(pal, img.Bounds(), img, img.Bounds().Min, imgdraw.Src)

		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, int(delay/(10*time.Millisecond)))
	}
	return gif.EncodeAll(w, anim)
}

// SavePatternAnimation writes PatternAnimation output to path.
func (f Figure) SavePatternAnimation(path string, frames [][]float64, grid dataio.Grid, titles []string, delay time.Duration) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return f.PatternAnimation(out, frames, grid, titles, delay)
}
