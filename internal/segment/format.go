package segment

import (
	"fmt"
	"strings"
	"time"

	"truvideo/internal/config"
	"truvideo/internal/services"
)

// Format describes the raw samples fed to a writer and how each track is
// encoded into the segment container.
type Format struct {
	Width       int
	Height      int
	FrameRate   int
	PixelFormat string
	VideoCodec  string
	SampleRate  int
	Channels    int
	AudioCodec  string
	QueueDepth  int
}

// FormatFromConfig maps capture settings onto a writer format.
func FormatFromConfig(c config.Capture) Format {
	return Format{
		Width:       c.Width,
		Height:      c.Height,
		FrameRate:   c.FrameRate,
		PixelFormat: c.PixelFormat,
		VideoCodec:  c.VideoCodec,
		SampleRate:  c.SampleRate,
		Channels:    c.Channels,
		AudioCodec:  c.AudioCodec,
		QueueDepth:  c.TrackQueueDepth,
	}
}

// Validate reports whether both tracks can be added to a segment.
func (f Format) Validate() error {
	var problems []string
	if f.Width <= 0 || f.Height <= 0 {
		problems = append(problems, fmt.Sprintf("video size %dx%d", f.Width, f.Height))
	}
	if f.FrameRate <= 0 {
		problems = append(problems, fmt.Sprintf("frame rate %d", f.FrameRate))
	}
	if _, ok := f.FrameSize(); !ok {
		problems = append(problems, fmt.Sprintf("pixel format %q", f.PixelFormat))
	}
	if strings.TrimSpace(f.VideoCodec) == "" {
		problems = append(problems, "empty video codec")
	}
	if f.SampleRate <= 0 {
		problems = append(problems, fmt.Sprintf("sample rate %d", f.SampleRate))
	}
	if f.Channels <= 0 || f.Channels > 2 {
		problems = append(problems, fmt.Sprintf("channel count %d", f.Channels))
	}
	if strings.TrimSpace(f.AudioCodec) == "" {
		problems = append(problems, "empty audio codec")
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrWriterConfig, "segment", "validate format", strings.Join(problems, "; "), nil)
	}
	return nil
}

// FrameSize is the byte length of one raw video frame.
func (f Format) FrameSize() (int, bool) {
	pixels := f.Width * f.Height
	switch strings.ToLower(strings.TrimSpace(f.PixelFormat)) {
	case "rgb24", "bgr24":
		return pixels * 3, true
	case "rgba", "bgra", "argb", "abgr":
		return pixels * 4, true
	case "gray":
		return pixels, true
	case "yuv420p", "nv12", "nv21":
		return pixels * 3 / 2, true
	default:
		return 0, false
	}
}

// FrameDuration is the display time of one video frame.
func (f Format) FrameDuration() time.Duration {
	if f.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(f.FrameRate)
}

// AudioBlockAlign is the byte length of one interleaved s16le sample frame.
func (f Format) AudioBlockAlign() int {
	return 2 * f.Channels
}

// AudioDuration is the play time of an s16le payload of n bytes.
func (f Format) AudioDuration(n int) time.Duration {
	align := f.AudioBlockAlign()
	if align <= 0 || f.SampleRate <= 0 {
		return 0
	}
	frames := n / align
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f Format) queueDepth() int {
	if f.QueueDepth <= 0 {
		return 64
	}
	return f.QueueDepth
}

// buildArgs assembles the ffmpeg invocation that muxes the two pipe inputs
// into dest.
func buildArgs(f Format, dest string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-f", "rawvideo",
		"-pixel_format", f.PixelFormat,
		"-video_size", fmt.Sprintf("%dx%d", f.Width, f.Height),
		"-framerate", fmt.Sprintf("%d", f.FrameRate),
		"-i", "pipe:3",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", f.SampleRate),
		"-ac", fmt.Sprintf("%d", f.Channels),
		"-i", "pipe:4",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", f.VideoCodec,
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", f.AudioCodec,
		"-f", "mov",
		dest,
	}
}
