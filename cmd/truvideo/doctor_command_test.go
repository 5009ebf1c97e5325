package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"truvideo/internal/testsupport"
)

func TestDoctorPassesWithToolsAndEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	env := setupCLITestEnv(t, testsupport.WithUploadEndpoint(server.URL))
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath, "")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "Config: "+env.configPath)
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "reachable (405)")
	// The stub binaries print no banner.
	requireContains(t, out, "ffmpeg: unavailable")
}

func TestDoctorFailsWithoutTools(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithEmptyPath())
	out, _, err := runCLI(t, []string{"doctor"}, env.configPath, "")
	if err == nil {
		t.Fatalf("expected doctor to fail without ffmpeg\n%s", out)
	}
	requireContains(t, out, "fail")
	requireContains(t, out, "ffmpeg: not installed")
	requireContains(t, out, "ffprobe: not installed")
}
