package provider

import (
	"bytes"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// DefaultMaxEdge bounds the longest edge of an uploaded photo before it is
// sent to the image-restyle provider, to cap latency and cost.
const DefaultMaxEdge = 1536

// Downsample scales an image down so its longest edge is at most maxEdge,
// preserving aspect ratio, and re-encodes it as PNG. Images already within
// the bound are returned byte-identical, untouched.
func Downsample(data []byte, maxEdge int) ([]byte, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, Errf(KindBadInput, "payload is not a decodable image: %v", err)
	}
	if cfg.Width <= maxEdge && cfg.Height <= maxEdge {
		return data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Errf(KindBadInput, "payload is not a decodable image: %v", err)
	}

	w, h := cfg.Width, cfg.Height
	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, Errf(KindBadInput, "re-encode downsampled image: %v", err)
	}
	return buf.Bytes(), nil
}
