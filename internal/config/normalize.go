package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeExport()
	c.normalizeUpload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.PixelFormat = strings.ToLower(strings.TrimSpace(c.Capture.PixelFormat))
	if c.Capture.PixelFormat == "" {
		c.Capture.PixelFormat = defaultCapturePixelFormat
	}
	c.Capture.VideoCodec = strings.TrimSpace(c.Capture.VideoCodec)
	if c.Capture.VideoCodec == "" {
		c.Capture.VideoCodec = defaultCaptureVideoCodec
	}
	c.Capture.AudioCodec = strings.TrimSpace(c.Capture.AudioCodec)
	if c.Capture.AudioCodec == "" {
		c.Capture.AudioCodec = defaultCaptureAudioCodec
	}
	if c.Capture.TrackQueueDepth <= 0 {
		c.Capture.TrackQueueDepth = defaultTrackQueueDepth
	}
	if c.Capture.InboxDepth <= 0 {
		c.Capture.InboxDepth = defaultInboxDepth
	}
}

func (c *Config) normalizeExport() {
	c.Export.VideoCodec = strings.TrimSpace(c.Export.VideoCodec)
	if c.Export.VideoCodec == "" {
		c.Export.VideoCodec = defaultExportVideoCodec
	}
	c.Export.AudioCodec = strings.TrimSpace(c.Export.AudioCodec)
	if c.Export.AudioCodec == "" {
		c.Export.AudioCodec = defaultExportAudioCodec
	}
}

func (c *Config) normalizeUpload() {
	if value, ok := os.LookupEnv(uploadEndpointEnv); ok && strings.TrimSpace(value) != "" {
		c.Upload.Endpoint = value
	}
	c.Upload.Endpoint = strings.TrimSpace(c.Upload.Endpoint)
	if c.Upload.TimeoutSeconds <= 0 {
		c.Upload.TimeoutSeconds = defaultUploadTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(ntfyTopicEnv); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
