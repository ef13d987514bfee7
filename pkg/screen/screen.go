package screen

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
)

const (
	S = 128

	refreshInterval = 500 * time.Millisecond
)

// Status is what the screen shows.
type Status struct {
	State         string
	Leg           string
	X, Y          float64 // m
	Heading       float64 // rad
	DistanceMM    float64
	MotorsEnabled bool
}

// Screen redraws the latest Status onto a 128x128 RGB565 framebuffer from its
// own goroutine.
type Screen struct {
	device string

	lock   sync.Mutex
	status Status
	dirty  bool
}

func New(device string) *Screen {
	return &Screen{device: device, dirty: true}
}

// Update records the status to show at the next refresh.  Safe to call from
// any goroutine.
func (s *Screen) Update(st Status) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if st != s.status {
		s.status = st
		s.dirty = true
	}
}

func (s *Screen) latest() (Status, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	dirty := s.dirty
	s.dirty = false
	return s.status, dirty
}

// Loop refreshes the screen until the context is cancelled, then blanks it.
func (s *Screen) Loop(ctx context.Context) {
	f, err := os.OpenFile(s.device, os.O_RDWR, 0666)
	if err != nil {
		fmt.Println("Failed to open screen, ignoring")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var buf [S * S * 2]byte
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return
		case <-ticker.C:
		}
		st, dirty := s.latest()
		if !dirty {
			continue
		}
		buf := ToRGB565(Render(st))
		if _, err := f.Seek(0, 0); err != nil {
			fmt.Println("Screen failure: ", err)
			return
		}
		for i := 0; i < S; i++ {
			_, err = f.Write(buf[i*2*S : (i+1)*2*S])
			if err != nil {
				fmt.Println("Screen failure: ", err)
				return
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// Render draws a status page.
func Render(st Status) image.Image {
	dc := gg.NewContext(S, S)
	dc.SetRGBA(1, 0.9, 0, 1)

	dc.DrawString(st.State, 4, 14)
	if st.Leg != "" {
		dc.DrawString(st.Leg, 4, 28)
	}
	dc.DrawString(fmt.Sprintf("X %.2fm", st.X), 4, 46)
	dc.DrawString(fmt.Sprintf("Y %.2fm", st.Y), 4, 60)
	dc.DrawString(fmt.Sprintf("%.0fmm", st.DistanceMM), 4, 74)

	dc.Push()
	dc.Translate(96, 100)
	drawHeading(dc, st.Heading)
	dc.Pop()

	if !st.MotorsEnabled {
		dc.Push()
		dc.Translate(20, 104)
		DrawWarning(dc)
		dc.Pop()
	}
	return dc.Image()
}

// drawHeading draws a compass rose pointer.  Heading zero points right and
// angles grow anticlockwise.
func drawHeading(dc *gg.Context, heading float64) {
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawCircle(0, 0, 20)
	dc.Stroke()
	dc.Push()
	// Screen y grows downwards.
	dc.Rotate(-heading)
	dc.Scale(1.0, 0.5)
	dc.DrawRegularPolygon(3, 8, 0, 12, math.Pi/2)
	dc.Fill()
	dc.Pop()
	dc.DrawString(fmt.Sprintf("%.0f", gg.Degrees(heading)), -10, 36)
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 14, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
}

// ToRGB565 packs an image into the panel's byte order.  The panel is mounted
// rotated so columns of the image become rows of the framebuffer.
func ToRGB565(img image.Image) []byte {
	buf := make([]byte, S*S*2)
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
	return buf
}
