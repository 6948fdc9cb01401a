package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplate(t *testing.T) {
	Version, Commit, Date = "v1.2.3", "abc123", "2026-01-02"
	defer func() { Version, Commit, Date = "dev", "none", "unknown" }()

	if got := Template(); !strings.Contains(got, "version v1.2.3") || !strings.Contains(got, "commit: abc123") {
		t.Errorf("Template() = %q", got)
	}
	if got := Get(); got != (Info{Version: "v1.2.3", Commit: "abc123", Date: "2026-01-02"}) {
		t.Errorf("Get() = %+v", got)
	}
}
