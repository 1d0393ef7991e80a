// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"image"
	"image/png"
	"math/rand"
)

// T is the subset of testing.TB the helpers need.
type T interface {
	Helper()
	Fatalf(string, ...any)
	Cleanup(func())
}

// TinyPNG returns a transparent PNG of the requested dimensions.
func TinyPNG(t T, w, h int) []byte {
	t.Helper()
	return pngBytes(t, image.NewNRGBA(image.Rect(0, 0, w, h)))
}

// NoisyPNG returns an opaque PNG of seeded random pixels. Noise barely
// compresses, so large sizes push uploads through the resize path.
func NoisyPNG(t T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng := rand.New(rand.NewSource(42)) // #nosec G404 -- test data
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return pngBytes(t, img)
}

func pngBytes(t T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	must(t, "encode png", png.Encode(&buf, img))
	return buf.Bytes()
}
