// Package version holds build information set at link time:
//
//	go build -ldflags "-X github.com/jackzampolin/ieltsmeta/version.GitRelease=v1.0.0 ..."
package version

import (
	"fmt"
	"runtime"
)

var (
	// GitRelease is the release tag.
	GitRelease = "1.0.0"
	// GitCommit is the commit hash.
	GitCommit = "unknown"
	// GitCommitDate is the commit date.
	GitCommitDate = "unknown"
	// GoInfo is the toolchain and platform.
	GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)
