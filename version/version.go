package version

import (
	"runtime/debug"
	"sync"
)

// Module is the import path whose build version is reported.
const Module = "github.com/kbukum/restkit"

// Version overrides the detected version. It is set at build time:
//
//	go build -ldflags "-X github.com/kbukum/restkit/version.Version=1.4.0"
var Version = ""

var (
	detectOnce sync.Once
	detected   string
)

// Get returns Version when set, otherwise the version of Module recorded
// in the binary's build info, or "dev" for untagged builds.
func Get() string {
	if Version != "" {
		return Version
	}
	detectOnce.Do(func() {
		detected = fromBuildInfo(debug.ReadBuildInfo())
	})
	return detected
}

func fromBuildInfo(info *debug.BuildInfo, ok bool) string {
	if !ok || info == nil {
		return "dev"
	}
	if info.Main.Path == Module {
		return usable(info.Main.Version)
	}
	for _, dep := range info.Deps {
		if dep.Path != Module {
			continue
		}
		if dep.Replace != nil {
			return usable(dep.Replace.Version)
		}
		return usable(dep.Version)
	}
	return "dev"
}

func usable(v string) string {
	if v == "" || v == "(devel)" {
		return "dev"
	}
	return v
}

// UserAgent is the User-Agent sent by requests that set none.
func UserAgent() string {
	return "restkit/" + Get()
}
