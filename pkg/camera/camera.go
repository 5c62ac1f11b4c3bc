// Package camera captures still photos through the rpicam-still tool.
package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	// DefaultBinary is the capture tool shipped with Raspberry Pi OS.
	DefaultBinary = "rpicam-still"

	// DefaultTimeout bounds a single capture, shutter delay included.
	DefaultTimeout = 10 * time.Second
)

// Camera shells out to rpicam-still for JPEG captures.
type Camera struct {
	// Binary overrides DefaultBinary, mainly for tests.
	Binary string

	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration

	// Width and Height select the capture resolution. Zero means
	// 1280x960, plenty for vision prompts and photo mail.
	Width, Height int
}

// Capture takes a photo and returns the JPEG bytes.
func (c *Camera) Capture(ctx context.Context) ([]byte, error) {
	bin := c.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	width, height := c.Width, c.Height
	if width == 0 {
		width = 1280
	}
	if height == 0 {
		height = 960
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path := filepath.Join(os.TempDir(), fmt.Sprintf("necklace_capture_%d.jpg", time.Now().UnixNano()))
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, bin,
		"-o", path,
		"-t", "500",
		"--width", fmt.Sprint(width),
		"--height", fmt.Sprint(height))
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("camera capture timed out after %s", timeout)
		}
		return nil, fmt.Errorf("camera capture: %w: %s", err, out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return data, nil
}
