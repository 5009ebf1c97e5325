package config

import (
	"os"
	"path/filepath"
)

const (
	defaultStateDir             = "~/.local/share/truvideo"
	defaultLogDir               = "~/.local/share/truvideo/logs"
	defaultCaptureWidth         = 1280
	defaultCaptureHeight        = 720
	defaultCaptureFrameRate     = 30
	defaultCapturePixelFormat   = "rgb24"
	defaultCaptureVideoCodec    = "libx264"
	defaultCaptureSampleRate    = 44100
	defaultCaptureChannels      = 1
	defaultCaptureAudioCodec    = "aac"
	defaultTrackQueueDepth      = 64
	defaultInboxDepth           = 512
	defaultExportWidth          = 1280
	defaultExportHeight         = 720
	defaultExportVideoCodec     = "libx264"
	defaultExportAudioCodec     = "aac"
	defaultExportMaxBytes       = 500_000_000
	defaultUploadEndpoint       = "https://webhook.site/6ea66387-31d3-42fa-ad61-7787376ad5c7"
	defaultUploadTimeoutSeconds = 300
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	finalOutputName             = "FinalCompressedVideo.mp4"
	uploadEndpointEnv           = "TRUVIDEO_UPLOAD_ENDPOINT"
	ntfyTopicEnv                = "TRUVIDEO_NTFY_TOPIC"
	scratchDirName              = "truvideo"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir(),
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Capture: Capture{
			Width:           defaultCaptureWidth,
			Height:          defaultCaptureHeight,
			FrameRate:       defaultCaptureFrameRate,
			PixelFormat:     defaultCapturePixelFormat,
			VideoCodec:      defaultCaptureVideoCodec,
			SampleRate:      defaultCaptureSampleRate,
			Channels:        defaultCaptureChannels,
			AudioCodec:      defaultCaptureAudioCodec,
			TrackQueueDepth: defaultTrackQueueDepth,
			InboxDepth:      defaultInboxDepth,
		},
		Export: Export{
			Width:      defaultExportWidth,
			Height:     defaultExportHeight,
			VideoCodec: defaultExportVideoCodec,
			AudioCodec: defaultExportAudioCodec,
			MaxBytes:   defaultExportMaxBytes,
			FastStart:  true,
		},
		Upload: Upload{
			Endpoint:       defaultUploadEndpoint,
			TimeoutSeconds: defaultUploadTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultScratchDir() string {
	return filepath.Join(os.TempDir(), scratchDirName)
}
