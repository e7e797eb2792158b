package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestStrings(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	defer func() { Version, GitCommit = oldVersion, oldCommit }()
	Version, GitCommit = "v1.2.0", "abc1234"

	if got := String(); got != "v1.2.0 (abc1234)" {
		t.Errorf("String() = %q", got)
	}
	if got := Full(); !strings.HasPrefix(got, "v1.2.0 (abc1234) built ") || !strings.HasSuffix(got, runtime.Version()) {
		t.Errorf("Full() = %q", got)
	}
	if info := GetInfo(); info.Version != "v1.2.0" || info.GoVersion != runtime.Version() {
		t.Errorf("GetInfo() = %+v", info)
	}
}
