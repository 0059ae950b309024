package version

import "testing"

func TestGetPrefersLinkerValues(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldVersion, oldCommit, oldDate })

	Version, Commit, Date = "v1.2.3", "0123456789abcdef", "2026-01-02T03:04:05Z"

	info := Get()
	if info.Version != "v1.2.3" {
		t.Errorf("Expected version v1.2.3, got %s", info.Version)
	}
	if got := info.String(); got != "v1.2.3 (0123456, built 2026-01-02T03:04:05Z)" {
		t.Errorf("Unexpected full version %q", got)
	}
	if GetVersion() != "v1.2.3" {
		t.Errorf("GetVersion() = %s", GetVersion())
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		info     Info
		expected string
	}{
		{Info{Version: "v1", Commit: "unknown", Date: "unknown"}, "v1"},
		{Info{Version: "v1", Commit: "abc", Date: "unknown"}, "v1"},
		{Info{Version: "v1", Commit: "abcdef012345", Date: "unknown"}, "v1 (abcdef0)"},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.expected {
			t.Errorf("%+v.String() = %q, expected %q", tt.info, got, tt.expected)
		}
	}
}
