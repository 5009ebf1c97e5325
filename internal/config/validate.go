package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCapture() error {
	if err := ensurePositiveMap(map[string]int{
		"capture.width":       c.Capture.Width,
		"capture.height":      c.Capture.Height,
		"capture.frame_rate":  c.Capture.FrameRate,
		"capture.sample_rate": c.Capture.SampleRate,
		"capture.channels":    c.Capture.Channels,
	}); err != nil {
		return err
	}
	if c.Capture.Width%2 != 0 || c.Capture.Height%2 != 0 {
		return errors.New("capture.width and capture.height must be even")
	}
	if c.Capture.Channels > 2 {
		return errors.New("capture.channels must be 1 or 2")
	}
	return nil
}

func (c *Config) validateExport() error {
	if err := ensurePositiveMap(map[string]int{
		"export.width":  c.Export.Width,
		"export.height": c.Export.Height,
	}); err != nil {
		return err
	}
	if c.Export.MaxBytes <= 0 {
		return errors.New("export.max_bytes must be positive")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.Endpoint == "" {
		return fmt.Errorf("upload.endpoint must be set (or set %s)", uploadEndpointEnv)
	}
	parsed, err := url.Parse(c.Upload.Endpoint)
	if err != nil {
		return fmt.Errorf("upload.endpoint: %w", err)
	}
	if scheme := strings.ToLower(parsed.Scheme); scheme != "http" && scheme != "https" {
		return fmt.Errorf("upload.endpoint must be an http(s) URL, got %q", c.Upload.Endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("upload.endpoint is missing a host: %q", c.Upload.Endpoint)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
