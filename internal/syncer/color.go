package syncer

import (
	"fmt"
	"math"
)

// rgba is a remote color value: channels as floats in [0, 1].
type rgba struct {
	r, g, b, a float64
}

// colorValue interprets a raw mode value as a color object.
func colorValue(raw any) (rgba, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return rgba{}, false
	}
	r, rok := num(m["r"])
	g, gok := num(m["g"])
	b, bok := num(m["b"])
	if !rok || !gok || !bok {
		return rgba{}, false
	}
	a, aok := num(m["a"])
	if !aok {
		a = 1
	}
	return rgba{r: r, g: g, b: b, a: a}, true
}

func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func channel(f float64) int {
	c := int(math.Round(f * 255))
	if c < 0 {
		return 0
	}
	if c > 255 {
		return 255
	}
	return c
}

func (c rgba) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.r), channel(c.g), channel(c.b))
}

func (c rgba) rgbString() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", channel(c.r), channel(c.g), channel(c.b))
}

// hslString renders the standard RGB→HSL conversion, with hue in degrees
// and saturation/lightness as rounded percentages.
func (c rgba) hslString() string {
	maxC := math.Max(c.r, math.Max(c.g, c.b))
	minC := math.Min(c.r, math.Min(c.g, c.b))
	l := (maxC + minC) / 2

	var h, s float64
	if maxC != minC {
		d := maxC - minC
		if l > 0.5 {
			s = d / (2 - maxC - minC)
		} else {
			s = d / (maxC + minC)
		}
		switch maxC {
		case c.r:
			h = (c.g - c.b) / d
			if c.g < c.b {
				h += 6
			}
		case c.g:
			h = (c.b-c.r)/d + 2
		default:
			h = (c.r-c.g)/d + 4
		}
		h *= 60
	}

	return fmt.Sprintf("hsl(%d, %d%%, %d%%)",
		int(math.Round(h)), int(math.Round(s*100)), int(math.Round(l*100)))
}
