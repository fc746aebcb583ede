package contracts

import (
	"fmt"
	"runtime"
)

// Version of the cleaning service; BuildTime and GitCommit are stamped via -ldflags.
const Version = "0.3.0"

// OutputSchema names the layout of the cleaned CSV and the quality report JSON.
// Bump it whenever a column is renamed or a report key changes.
const OutputSchema = "zomato-clean/v1"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is served by /api/version and printed by `cleaner -version`
type VersionInfo struct {
	Version      string `json:"version"`
	OutputSchema string `json:"output_schema"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		OutputSchema: OutputSchema,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("zomatoclean %s (%s, commit %s, built %s, %s %s)",
		v.Version, v.OutputSchema, v.GitCommit, v.BuildTime, v.GoVersion, v.Platform)
}
