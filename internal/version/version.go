package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at link time:
//
//	go build -ldflags="-X github.com/muurk/imagegen/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/imagegen/internal/version.Commit=abc123"
//
// Unset values are filled from the embedded VCS stamp, then from "dev".
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		fromBuildInfo(debug.ReadBuildInfo)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

type buildInfoReader func() (*debug.BuildInfo, bool)

func fromBuildInfo(read buildInfoReader) {
	info, ok := read()
	if !ok {
		return
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if rev := settings["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}

	// Module version is "(devel)" for local builds
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
		return
	}
	if Version == "" {
		if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent by the HTTP client on every request.
func UserAgent() string {
	return fmt.Sprintf("imagegen/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
