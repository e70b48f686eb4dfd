package core

import "fmt"

// Build metadata, injected with:
//
//	go build -ldflags "-X sysmon/core.Version=$(git describe --tags --always) \
//	    -X sysmon/core.GitCommit=$(git rev-parse --short HEAD) \
//	    -X sysmon/core.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" .
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// GetVersionInfo returns e.g. "v1.2.0 (built 2024-01-15T10:30:00Z, commit abc1234)".
func GetVersionInfo() string {
	return fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit)
}
