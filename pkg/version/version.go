// Package version exposes build metadata injected via -ldflags.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// Defaults, overridden at build time with
// -ldflags "-X netscope/pkg/version.buildVersion=... ".
var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildTime    = "unknown"
)

// BuildInfo is the build metadata for the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	CommitSHA string `json:"commit_sha"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the current build information.
func Get() BuildInfo {
	return BuildInfo{
		Version:   buildVersion,
		CommitSHA: buildCommit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// FormatInfo returns a multi-line human-readable rendering.
func FormatInfo() string {
	info := Get()
	return fmt.Sprintf("netscope v%s\nCommit:    %s\nBuild:     %s\nGo:        %s\nPlatform:  %s\n",
		info.Version, info.CommitSHA, info.BuildTime, info.GoVersion, info.Platform)
}

// FormatCompact returns "version (commit)" for banners.
func FormatCompact() string {
	info := Get()
	commit := info.CommitSHA
	if len(commit) > 8 {
		commit = commit[:8]
	}
	return fmt.Sprintf("%s (%s)", info.Version, commit)
}

// FormatJSON returns the build information as JSON.
func FormatJSON() (string, error) {
	data, err := json.MarshalIndent(Get(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
