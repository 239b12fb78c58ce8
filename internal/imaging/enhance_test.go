package imaging

import (
	"image"
	"image/color"
	"testing"
)

// lumaRange reports the min and max luminance present in an image.
func lumaRange(img image.Image) (uint8, uint8) {
	b := img.Bounds()
	min, max := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			luma, _, _ := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			if luma < min {
				min = luma
			}
			if luma > max {
				max = luma
			}
		}
	}
	return min, max
}

func TestEnhanceStretchesLowContrast(t *testing.T) {
	// A murky gradient confined to the 100..131 band.
	src := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := uint8(100 + x)
			src.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	srcMin, srcMax := lumaRange(src)
	out := Enhance(src)
	outMin, outMax := lumaRange(out)

	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds changed: %v -> %v", src.Bounds(), out.Bounds())
	}
	if int(outMax)-int(outMin) <= int(srcMax)-int(srcMin) {
		t.Errorf("contrast not stretched: src range [%d,%d], out range [%d,%d]",
			srcMin, srcMax, outMin, outMax)
	}
	if outMax < 250 {
		t.Errorf("brightest band should reach near 255, got %d", outMax)
	}
}

func TestEnhancePreservesDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 7, 13))
	out := Enhance(src)
	if out.Bounds().Dx() != 7 || out.Bounds().Dy() != 13 {
		t.Errorf("unexpected output size %v", out.Bounds())
	}
}

func TestEnhanceEmptyImage(t *testing.T) {
	out := Enhance(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	if out.Bounds().Dx() != 0 || out.Bounds().Dy() != 0 {
		t.Errorf("expected empty output, got %v", out.Bounds())
	}
}
