// Package version reports how the component builder binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Name is the program name used in version strings and the User-Agent.
const Name = "component-builder"

// These variables are set at build time using -ldflags, for example
// -X github.com/dmckenna-gumgum/component-builder/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	// BuildTime is RFC3339.
	BuildTime = "unknown"
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty"`
	Release   bool      `json:"release"`
}

// GetBuildInfo merges the ldflags values with the VCS settings the Go
// toolchain embeds. ldflags win when set.
func GetBuildInfo() *BuildInfo {
	info := &BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		applyDebugInfo(info, bi)
	}
	info.Release = info.Version != "" && info.Version != "dev" && !strings.HasPrefix(info.Version, "dev-")

	return info
}

func applyDebugInfo(info *BuildInfo, bi *debug.BuildInfo) {
	if (info.Version == "" || info.Version == "dev") && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" || info.GitCommit == "unknown" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime.IsZero() {
				info.BuildTime = parseBuildTime(s.Value)
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}

	if info.Version == "dev" && len(info.GitCommit) >= 7 && info.GitCommit != "unknown" {
		info.Version = "dev-" + info.GitCommit[:7]
	}
}

// ShortCommit returns the first seven characters of the commit, or "".
func (b *BuildInfo) ShortCommit() string {
	if b.GitCommit == "unknown" || len(b.GitCommit) < 7 {
		return ""
	}
	return b.GitCommit[:7]
}

// Short renders "v1.2.0 (abc1234)" or just the version.
func (b *BuildInfo) Short() string {
	commit := b.ShortCommit()
	if commit == "" || strings.HasSuffix(b.Version, commit) {
		return b.Version
	}
	return fmt.Sprintf("%s (%s)", b.Version, commit)
}

// Detailed renders one "Key: value" line per known field.
func (b *BuildInfo) Detailed() string {
	lines := []string{"Version: " + b.Version}
	if b.GitCommit != "unknown" && b.GitCommit != "" {
		lines = append(lines, "Commit: "+b.GitCommit)
	}
	if !b.BuildTime.IsZero() {
		lines = append(lines, "Built: "+b.BuildTime.UTC().Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+b.GoVersion, "Platform: "+b.Platform)
	if b.Dirty {
		lines = append(lines, "Working tree: dirty")
	}
	if b.Release {
		lines = append(lines, "Build type: release")
	} else {
		lines = append(lines, "Build type: development")
	}

	return strings.Join(lines, "\n")
}

// GetShortVersion returns GetBuildInfo().Short().
func GetShortVersion() string {
	return GetBuildInfo().Short()
}

// UserAgent identifies the builder to the model API.
func UserAgent() string {
	return Name + "/" + GetBuildInfo().Version
}

func parseBuildTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
