// Package blur derives tiny base64 JPEG previews from uploaded images.
// Generation is a best-effort enhancement: callers log failures and
// carry on without a preview.
package blur

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// placeholders only need a handful of pixels; the browser scales
	// them up and blurs them anyway
	defaultMaxWidth = 8
	defaultTimeout  = 10 * time.Second

	// decode limit for the fetched source image
	maxSourceBytes = 20 << 20
)

type Generator struct {
	client   *http.Client
	maxWidth int
}

type Option func(*Generator)

// WithHTTPClient replaces the client used to fetch the source image.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) {
		g.client = client
	}
}

// WithMaxWidth sets the pixel width of the generated placeholder.
func WithMaxWidth(width int) Option {
	return func(g *Generator) {
		g.maxWidth = width
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		client:   &http.Client{Timeout: defaultTimeout},
		maxWidth: defaultMaxWidth,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate fetches imageURL, downscales it and returns the preview as a
// base64 JPEG data URL.
func (g *Generator) Generate(ctx context.Context, imageURL string) (string, error) {
	const op = "Generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to build request, err=%w", op, err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to fetch image, err=%w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("[%s] Unexpected status %d fetching image", op, resp.StatusCode)
	}

	src, _, err := image.Decode(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to decode image, err=%w", op, err)
	}

	bounds := src.Bounds()
	width := g.maxWidth
	if bounds.Dx() < width {
		width = bounds.Dx()
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 70}); err != nil {
		return "", fmt.Errorf("[%s] Fail to encode placeholder, err=%w", op, err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
