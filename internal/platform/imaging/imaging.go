package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const DefaultMaxSide = 1024

// Downscale decodes raw, shrinks it so the longer side is at most maxSide,
// and re-encodes it as JPEG. Images already within bounds are re-encoded
// without scaling so every caption request carries the same format.
func Downscale(raw []byte, maxSide int) ([]byte, string, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), maxSide)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), "image/jpeg", nil
}

// Fit returns w,h scaled to keep the aspect ratio with the longer side <= maxSide.
func Fit(w, h, maxSide int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	if w <= maxSide && h <= maxSide {
		return w, h
	}
	if w >= h {
		nh := h * maxSide / w
		if nh < 1 {
			nh = 1
		}
		return maxSide, nh
	}
	nw := w * maxSide / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxSide
}
