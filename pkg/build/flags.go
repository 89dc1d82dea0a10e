// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the looper binary at link
// time:
//
//	go build -ldflags "-X looper/pkg/build.buildName=looper \
//	    -X looper/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds carry no flags; Initialize then reports what is missing
// and the module version from the Go build info is used instead.
package build

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Info is the build metadata of the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats the info for `looper --version`.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

const unknown = "unknown"

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = defaultInfo()

func defaultInfo() Info {
	return Info{
		Name:        "looper",
		Description: "Sample-accurate live looper with reverse, half and double speed playback and segment selection",
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}
}

// Initialize copies the linker-provided values into the package info. Every
// missing flag is reported; fields without a flag keep their defaults, with
// the version and commit recovered from the Go build info when available.
func Initialize() error {
	info = defaultInfo()

	var errs []error
	set := func(dst *string, v, flag string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = v
	}
	set(&info.Name, buildName, "BuildName")
	set(&info.Time, buildTime, "BuildTime")
	set(&info.Commit, buildCommit, "BuildCommit")
	set(&info.Version, buildVersion, "BuildVersion")

	if len(errs) > 0 {
		fillFromBuildInfo(&info, debug.ReadBuildInfo)
	}
	return errors.Join(errs...)
}

func fillFromBuildInfo(i *Info, read func() (*debug.BuildInfo, bool)) {
	bi, ok := read()
	if !ok {
		return
	}
	if i.Version == unknown && bi.Main.Version != "" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == unknown {
				i.Commit = s.Value
			}
		case "vcs.time":
			if i.Time == unknown {
				i.Time = s.Value
			}
		}
	}
}

// Get returns the current build information.
func Get() Info {
	return info
}
