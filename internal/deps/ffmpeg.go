package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Version runs `<binary> -version` and returns the first line of output, for
// example "ffmpeg version 7.1 Copyright ...".
func Version(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("version: empty binary")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "-hide_banner", "-version").Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	if scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s -version: empty output", binary)
}

// ShortVersion trims a version banner down to "<tool> <version>".
func ShortVersion(banner string) string {
	fields := strings.Fields(banner)
	if len(fields) >= 3 && fields[1] == "version" {
		return fields[0] + " " + fields[2]
	}
	return strings.TrimSpace(banner)
}
