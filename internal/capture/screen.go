package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kbinani/screenshot"

	"skmotion/internal/media"
)

// ErrNoDisplays is returned when the display server reports no active screens.
var ErrNoDisplays = errors.New("no displays found")

// ScreenSource enumerates and captures the active displays of the desktop
// session.
type ScreenSource struct{}

func NewScreenSource() *ScreenSource { return &ScreenSource{} }

func (ScreenSource) Displays() ([]media.DisplayInfo, error) {
	total := screenshot.NumActiveDisplays()
	if total <= 0 {
		return nil, nil
	}
	displays := make([]media.DisplayInfo, 0, total)
	for i := 0; i < total; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		displays = append(displays, media.DisplayInfo{Index: i, Width: bounds.Dx(), Height: bounds.Dy()})
	}
	return displays, nil
}

func (ScreenSource) Open(index int) (media.Grabber, error) {
	total := screenshot.NumActiveDisplays()
	if total == 0 {
		return nil, ErrNoDisplays
	}
	if index < 0 || index >= total {
		return nil, fmt.Errorf("invalid display index %d (max %d)", index, total-1)
	}
	bounds := screenshot.GetDisplayBounds(index)
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("display %d has zero bounds", index)
	}
	return &screenGrabber{index: index, bounds: bounds}, nil
}

type screenGrabber struct {
	mu     sync.Mutex
	index  int
	bounds image.Rectangle
	buf    []byte
	closed bool
}

func (g *screenGrabber) Grab() (media.RawFrame, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return media.RawFrame{}, errors.New("grabber closed")
	}
	img, err := screenshot.CaptureRect(g.bounds)
	if err != nil {
		return media.RawFrame{}, fmt.Errorf("capture display %d: %w", g.index, err)
	}
	now := time.Now()
	g.buf = RGBAToBGRA(g.buf, img)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	return media.RawFrame{
		Data:     g.buf,
		Width:    w,
		Height:   h,
		Stride:   w * media.BytesPerPixel,
		Captured: now,
	}, nil
}

func (g *screenGrabber) Width() int  { return g.bounds.Dx() }
func (g *screenGrabber) Height() int { return g.bounds.Dy() }

func (g *screenGrabber) Close() error {
	g.mu.Lock()
	g.closed = true
	g.buf = nil
	g.mu.Unlock()
	return nil
}

// RGBAToBGRA packs img into dst as tightly strided BGRA rows, growing dst when
// needed.
func RGBAToBGRA(dst []byte, img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowBytes := w * media.BytesPerPixel
	size := rowBytes * h
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		out := dst[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < rowBytes; x += media.BytesPerPixel {
			out[x] = src[x+2]
			out[x+1] = src[x+1]
			out[x+2] = src[x]
			out[x+3] = src[x+3]
		}
	}
	return dst
}
