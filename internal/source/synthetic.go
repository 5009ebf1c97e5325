package source

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"time"

	"truvideo/internal/capture"
	"truvideo/internal/config"
	"truvideo/internal/logging"
	"truvideo/internal/segment"
)

const toneHz = 440.0

// Synthetic generates interleaved video and audio samples.
type Synthetic struct {
	format segment.Format
	logger *slog.Logger
	now    func() time.Time
}

// NewSynthetic builds a generator matching the capture format.
func NewSynthetic(cfg config.Capture, logger *slog.Logger) *Synthetic {
	return &Synthetic{
		format: segment.FormatFromConfig(cfg),
		logger: logging.NewComponentLogger(logger, "source"),
		now:    time.Now,
	}
}

// Run emits one video frame and the matching slice of audio per frame tick
// until ctx is done. PTS values come from a monotonic clock started at Run.
func (s *Synthetic) Run(ctx context.Context, sink func(capture.Sample) bool) error {
	interval := s.format.FrameDuration()
	if interval <= 0 {
		interval = time.Second / 30
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := s.now()
	var frame int
	var dropped int64
	var audioCursor int64
	for {
		select {
		case <-ctx.Done():
			if dropped > 0 {
				s.logger.Info("synthetic source stopped", logging.Int("frames", frame), logging.Int64("dropped", dropped))
			}
			return nil
		case <-ticker.C:
		}
		pts := s.now().Sub(start)
		video, audio := s.Frame(frame, pts, &audioCursor)
		if !sink(video) {
			dropped++
		}
		if !sink(audio) {
			dropped++
		}
		frame++
	}
}

// Frame builds the samples for frame index i at pts. audioCursor tracks the
// running audio sample count so the tone stays continuous across frames.
func (s *Synthetic) Frame(i int, pts time.Duration, audioCursor *int64) (video, audio capture.Sample) {
	video = capture.Sample{Track: capture.TrackVideo, PTS: pts, Payload: s.videoFrame(i)}

	rate := int64(s.format.SampleRate)
	fps := int64(s.format.FrameRate)
	if fps <= 0 {
		fps = 30
	}
	// Samples owed up to the end of frame i, so chunks average rate/fps.
	target := (int64(i) + 1) * rate / fps
	count := int(target - *audioCursor)
	audio = capture.Sample{Track: capture.TrackAudio, PTS: pts, Payload: s.tone(*audioCursor, count)}
	*audioCursor = target
	return video, audio
}

func (s *Synthetic) videoFrame(i int) []byte {
	size, ok := s.format.FrameSize()
	if !ok || size <= 0 {
		return nil
	}
	frame := make([]byte, size)
	switch s.format.PixelFormat {
	case "rgb24", "bgr24":
		s.colourBars(frame, i, 3)
	case "rgba", "bgra", "argb", "abgr":
		s.colourBars(frame, i, 4)
	default:
		for p := range frame {
			frame[p] = byte((p + i) % 256)
		}
	}
	return frame
}

var bars = [][3]byte{
	{192, 192, 192}, {192, 192, 0}, {0, 192, 192}, {0, 192, 0},
	{192, 0, 192}, {192, 0, 0}, {0, 0, 192},
}

func (s *Synthetic) colourBars(frame []byte, shift, bpp int) {
	width := s.format.Width
	barWidth := width / len(bars)
	if barWidth == 0 {
		barWidth = 1
	}
	for y := 0; y < s.format.Height; y++ {
		for x := 0; x < width; x++ {
			bar := bars[((x+shift)/barWidth)%len(bars)]
			offset := (y*width + x) * bpp
			copy(frame[offset:offset+3], bar[:])
			if bpp == 4 {
				frame[offset+3] = 0xff
			}
		}
	}
}

func (s *Synthetic) tone(start int64, count int) []byte {
	channels := s.format.Channels
	if channels <= 0 || count <= 0 {
		return nil
	}
	buf := make([]byte, count*channels*2)
	rate := float64(s.format.SampleRate)
	for n := 0; n < count; n++ {
		t := float64(start+int64(n)) / rate
		value := int16(math.Sin(2*math.Pi*toneHz*t) * 0.25 * math.MaxInt16)
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(buf[(n*channels+c)*2:], uint16(value))
		}
	}
	return buf
}
