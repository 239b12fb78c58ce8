package imaging

import (
	"image"
	"image/color"
)

// Enhance stretches the contrast of a probe image by equalizing its
// luminance histogram, leaving chroma untouched. Dim or washed-out
// uploads come out with the full tonal range available to detection.
func Enhance(src image.Image) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	total := b.Dx() * b.Dy()
	if total == 0 {
		return out
	}

	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			luma, _, _ := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			hist[luma]++
		}
	}

	var lut [256]uint8
	cum := 0
	for i, n := range hist {
		cum += n
		lut[i] = uint8((cum*255 + total/2) / total)
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := src.At(x, y).RGBA()
			luma, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			er, eg, eb := color.YCbCrToRGB(lut[luma], cb, cr)
			out.SetRGBA(x, y, color.RGBA{R: er, G: eg, B: eb, A: uint8(a >> 8)})
		}
	}
	return out
}
