// SPDX-License-Identifier: MIT
//
// Package build carries the metadata injected at link time (name, version,
// commit, build time) so the CLI can report exactly which firmware build is
// driving the display. Development builds without ldflags keep the
// placeholder values and report an error from Initialize.
//
//	go build -ldflags "-X spectrum/pkg/build.buildName=spectrum \
//	  -X spectrum/pkg/build.buildVersion=0.3.0 ..."
package build

import (
	"errors"
	"fmt"
	"strings"
)

// Description is the one-line summary shown in the CLI help.
const Description = "16-column LCD spectrum analyzer with a button-driven volume scale"

// ErrMissingFlags is returned by Initialize when ldflags were not supplied.
var ErrMissingFlags = errors.New("build flags missing")

// Info is the resolved build metadata.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String renders the version line printed by `spectrum --version`.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:    "spectrum",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies the ldflags variables into the build info. When any of
// them is empty the placeholders stay in place and an error naming the
// missing flags is returned; callers treat that as non-fatal.
func Initialize() error {
	var missing []string
	if buildName == "" {
		missing = append(missing, "BuildName")
	}
	if buildTime == "" {
		missing = append(missing, "BuildTime")
	}
	if buildCommit == "" {
		missing = append(missing, "BuildCommit")
	}
	if buildVersion == "" {
		missing = append(missing, "BuildVersion")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFlags, strings.Join(missing, ", "))
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion
	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
