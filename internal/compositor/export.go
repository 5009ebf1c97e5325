package compositor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"truvideo/internal/config"
)

const (
	exportFrameRate  = 30
	exportSampleRate = 44100
)

// Profile is the delivery encode.
type Profile struct {
	Width      int
	Height     int
	VideoCodec string
	AudioCodec string
	MaxBytes   int64
	FastStart  bool
}

// ProfileFromConfig maps export settings onto a profile.
func ProfileFromConfig(e config.Export) Profile {
	return Profile{
		Width:      e.Width,
		Height:     e.Height,
		VideoCodec: e.VideoCodec,
		AudioCodec: e.AudioCodec,
		MaxBytes:   e.MaxBytes,
		FastStart:  e.FastStart,
	}
}

// buildFilterGraph normalizes every entry to the profile and concatenates
// them in timeline order.
func buildFilterGraph(t Timeline, p Profile) string {
	var parts []string
	var concatInputs strings.Builder
	size := fmt.Sprintf("%dx%d", p.Width, p.Height)
	for i, entry := range t.Entries {
		d := seconds(entry.Duration)
		if entry.HasVideo {
			parts = append(parts, fmt.Sprintf(
				"[%d:v:0]trim=duration=%s,setpts=PTS-STARTPTS,fps=%d,scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,format=yuv420p[v%d]",
				i, d, exportFrameRate, p.Width, p.Height, p.Width, p.Height, i))
		} else {
			parts = append(parts, fmt.Sprintf("color=c=black:s=%s:r=%d:d=%s,setsar=1,format=yuv420p[v%d]", size, exportFrameRate, d, i))
		}
		if entry.HasAudio {
			parts = append(parts, fmt.Sprintf(
				"[%d:a:0]aresample=%d,aformat=sample_fmts=fltp:channel_layouts=stereo,apad=whole_dur=%s,atrim=duration=%s,asetpts=PTS-STARTPTS[a%d]",
				i, exportSampleRate, d, d, i))
		} else {
			parts = append(parts, fmt.Sprintf("anullsrc=r=%d:cl=stereo,atrim=duration=%s,aformat=sample_fmts=fltp[a%d]", exportSampleRate, d, i))
		}
		fmt.Fprintf(&concatInputs, "[v%d][a%d]", i, i)
	}
	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=1[vout][aout]", concatInputs.String(), len(t.Entries)))
	return strings.Join(parts, ";")
}

// buildArgs assembles the export invocation. Input i is entry i's segment.
func buildArgs(t Timeline, p Profile, output string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y"}
	for _, entry := range t.Entries {
		args = append(args, "-i", entry.Segment.Path)
	}
	args = append(args,
		"-filter_complex", buildFilterGraph(t, p),
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", p.VideoCodec,
		"-preset", "medium",
		"-c:a", p.AudioCodec,
		"-b:a", "128k",
	)
	if p.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	if p.MaxBytes > 0 {
		args = append(args, "-fs", strconv.FormatInt(p.MaxBytes, 10))
	}
	args = append(args, "-f", "mp4", output)
	return args
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
