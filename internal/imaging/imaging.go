package imaging

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/your-org/facesearch/internal/config"
)

// ErrInvalidImage is returned when an upload fails validation before any
// external call is made. Callers can match it with errors.Is.
var ErrInvalidImage = errors.New("invalid image")

// UploadedImage is a validated, decoded upload. It lives only for the
// duration of one analysis request.
type UploadedImage struct {
	Data   []byte
	MIME   string
	Size   int64
	Hash   string // md5 of the raw bytes, used for audit records
	Image  image.Image
	Width  int
	Height int
}

// Preprocessor validates and decodes uploaded images.
type Preprocessor struct {
	maxBytes int64
	allowed  map[string]bool
}

func NewPreprocessor(cfg config.UploadConfig) *Preprocessor {
	allowed := make(map[string]bool, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[t] = true
	}
	return &Preprocessor{maxBytes: cfg.MaxBytes, allowed: allowed}
}

// Prepare validates raw upload bytes against the size limit and MIME
// allow-list and decodes them. All rejections wrap ErrInvalidImage.
func (p *Preprocessor) Prepare(data []byte, declaredMIME string) (*UploadedImage, error) {
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInvalidImage, len(data), p.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}

	if !p.allowed[declaredMIME] {
		return nil, fmt.Errorf("%w: type %q not allowed", ErrInvalidImage, declaredMIME)
	}

	// The declared type is client-supplied; sniff the actual bytes too.
	sniffed := http.DetectContentType(data)
	if !p.allowed[sniffed] {
		return nil, fmt.Errorf("%w: content is %q, not an allowed image type", ErrInvalidImage, sniffed)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode failed: %v", ErrInvalidImage, err)
	}

	sum := md5.Sum(data)
	bounds := img.Bounds()

	return &UploadedImage{
		Data:   data,
		MIME:   sniffed,
		Size:   int64(len(data)),
		Hash:   hex.EncodeToString(sum[:]),
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// Scale resizes an image to the target dimensions with Catmull-Rom
// interpolation, which keeps enough detail for detector input.
func Scale(src image.Image, targetW, targetH int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// Crop copies a rectangular region out of src, clamped to its bounds.
// Returns nil when the clamped region is empty.
func Crop(src image.Image, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(src.Bounds())
	if rect.Empty() {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(dst, image.Point{}, src, rect, draw.Src, nil)
	return dst
}

// EncodeJPEG renders an image as JPEG with the given quality.
func EncodeJPEG(img image.Image, quality int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return buf.Bytes()
}
