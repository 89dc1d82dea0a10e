// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"runtime/debug"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	info = defaultInfo()

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", "BuildName is required"},
		{"Missing BuildTime", "testapp", "", "abcdef123", "v1.0.0", "BuildTime is required"},
		{"Missing BuildCommit", "testapp", "2025-04-13", "", "v1.0.0", "BuildCommit is required"},
		{"Missing BuildVersion", "testapp", "2025-04-13", "abcdef123", "", "BuildVersion is required"},
		{"Success Case", "testapp", "2025-04-13", "abcdef123", "v1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrMsg) {
					t.Errorf("Initialize() error = %v, want %q", err, tt.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			got := Get()
			want := Info{
				Name:        tt.buildName,
				Description: defaultInfo().Description,
				Time:        tt.buildTime,
				Commit:      tt.buildCommit,
				Version:     tt.buildVer,
			}
			if got != want {
				t.Errorf("Get() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestInitializeReportsAllMissing(t *testing.T) {
	buildName, buildTime, buildCommit, buildVersion = "", "", "", ""

	err := Initialize()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, flag := range []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"} {
		if !strings.Contains(err.Error(), flag) {
			t.Errorf("error %q does not mention %s", err, flag)
		}
	}
	if Get().Name != "looper" {
		t.Errorf("Name = %q, want default", Get().Name)
	}
}

func TestFillFromBuildInfo(t *testing.T) {
	i := defaultInfo()
	fillFromBuildInfo(&i, func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.3.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "cafe"},
				{Key: "vcs.time", Value: "2025-05-01T00:00:00Z"},
			},
		}, true
	})
	if i.Version != "v0.3.0" || i.Commit != "cafe" || i.Time != "2025-05-01T00:00:00Z" {
		t.Errorf("info = %+v", i)
	}

	j := defaultInfo()
	fillFromBuildInfo(&j, func() (*debug.BuildInfo, bool) { return nil, false })
	if j != defaultInfo() {
		t.Errorf("info changed without build info: %+v", j)
	}
}

func TestInfoString(t *testing.T) {
	i := Info{Version: "v1", Commit: "abc", Time: "now"}
	if got := i.String(); got != "v1 (commit abc, built now)" {
		t.Errorf("String() = %q", got)
	}
}
