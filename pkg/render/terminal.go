package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/tgx/pkg/pixel"
)

// BlitToTerminal draws img into scr's area using half-block (▀)
// cells: each terminal row covers two image rows, the top one as the
// cell's foreground color and the bottom one as its background. img's
// height should be exactly 2x the area's row count; extra rows are
// ignored, a shorter image leaves the remaining rows untouched.
func BlitToTerminal(img pixel.View[pixel.RGBA8888], scr uv.Screen, area uv.Rectangle) {
	if !img.Valid() {
		return
	}
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1
		if topY >= img.Ly {
			break
		}
		for col := area.Min.X; col < area.Max.X && col-area.Min.X < img.Lx; col++ {
			x := col - area.Min.X
			top := img.At(x, topY)
			bg := color.RGBA{}
			if botY < img.Ly {
				bot := img.At(x, botY)
				bg = color.RGBA{R: bot.R, G: bot.G, B: bot.B, A: 255}
			}
			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: color.RGBA{R: top.R, G: top.G, B: top.B, A: 255},
					Bg: bg,
				},
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// Color is a convenience alias so demo code can name the same RGBA
// type image/color and pixel.RGBA8888 both round-trip through.
type Color = color.RGBA

// Named colors a terminal demo commonly wants for backgrounds and UI
// accents.
var (
	ColorBlack   = color.RGBA{A: 255}
	ColorWhite   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorRed     = color.RGBA{R: 255, A: 255}
	ColorGreen   = color.RGBA{G: 255, A: 255}
	ColorBlue    = color.RGBA{B: 255, A: 255}
	ColorYellow  = color.RGBA{R: 255, G: 255, A: 255}
	ColorCyan    = color.RGBA{G: 255, B: 255, A: 255}
	ColorMagenta = color.RGBA{R: 255, B: 255, A: 255}
	ColorGray    = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	ColorSky     = color.RGBA{R: 135, G: 206, B: 235, A: 255}
)

// RGB creates an opaque color from 8-bit channels.
func RGB(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }
