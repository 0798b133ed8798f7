package recorder

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/Motphys/phys-bench/internal/domain"
	"github.com/Motphys/phys-bench/internal/sim"
)

// DefaultFPS is the playback rate of written videos. Capture pacing
// targets the same rate so wall time in the video matches sim time.
const DefaultFPS = 30

// Recorder accumulates frames for a single run
type Recorder struct {
	fps    int
	frames []sim.Frame
}

// New creates a Recorder. fps <= 0 selects DefaultFPS.
func New(fps int) *Recorder {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Recorder{fps: fps}
}

// ShouldCapture reports whether another frame is due at the given sim
// time. Capture keeps pace with sim time regardless of dt: at 30 fps a
// 20 second run yields 600 frames whether ticks are 2ms or 10ms apart.
func (r *Recorder) ShouldCapture(elapsed float64) bool {
	return len(r.frames) < int(elapsed*float64(r.fps))
}

// Add appends completed frames in arrival order
func (r *Recorder) Add(frames []sim.Frame) {
	r.frames = append(r.frames, frames...)
}

// FrameCount returns the number of buffered frames
func (r *Recorder) FrameCount() int {
	return len(r.frames)
}

// SaveVideo encodes the buffered frames to an mp4 by piping raw RGB
// through ffmpeg. With no frames buffered it writes nothing.
func (r *Recorder) SaveVideo(path string) error {
	if len(r.frames) == 0 {
		log.Printf("[recorder] no frames captured, skipping %s", path)
		return nil
	}

	w, h := r.frames[0].Width, r.frames[0].Height
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", w, h),
		"-r", fmt.Sprintf("%d", r.fps),
		"-i", "-",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		path,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	for i, f := range r.frames {
		if f.Width != w || f.Height != h {
			stdin.Close()
			cmd.Wait()
			return fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, f.Width, f.Height, w, h)
		}
		if _, err := stdin.Write(f.Pixels); err != nil {
			cmd.Wait()
			return fmt.Errorf("writing frame %d: %w", i, err)
		}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	log.Printf("[recorder] wrote %d frames to %s", len(r.frames), path)
	return nil
}

// SaveResult writes the JSON sidecar next to the video path
func SaveResult(videoPath string, result domain.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ResultPath(videoPath), append(data, '\n'), 0644)
}
