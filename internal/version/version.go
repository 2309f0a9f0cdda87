package version

import (
	"strconv"
	"time"
)

const DevelopmentVersion = "dev"

// Populated at build time via -ldflags.
var (
	ProductVersion = DevelopmentVersion
	CommitHash     = ""
	BuildTimestamp = ""
)

type VersionOutput struct {
	Version    string `json:"version"`
	CommitHash string `json:"commitHash,omitempty"`
	BuildTime  string `json:"buildTimestamp,omitempty"`
}

func Version() VersionOutput {
	out := VersionOutput{
		Version:    ProductVersion,
		CommitHash: CommitHash,
	}
	if BuildTimestamp != "" {
		if ts, err := strconv.ParseInt(BuildTimestamp, 10, 64); err == nil {
			out.BuildTime = time.Unix(ts, 0).UTC().Format(time.RFC3339)
		}
	}
	return out
}
