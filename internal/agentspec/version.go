package agentspec

import (
	"strings"

	"golang.org/x/mod/semver"
)

// MeetsMinVersion reports whether detectedVersion satisfies agentID's
// manifest MinVersion constraint. An empty MinVersion (the default for
// every agent that doesn't declare one) always passes. Versions are
// compared via golang.org/x/mod/semver, which requires a leading "v";
// callers may pass bare "1.2.3" strings.
func MeetsMinVersion(agentID, detectedVersion string) bool {
	def, ok := Get(agentID)
	if !ok || def.MinVersion == "" {
		return true
	}

	want := canonicalSemver(def.MinVersion)
	got := canonicalSemver(detectedVersion)
	if !semver.IsValid(want) || !semver.IsValid(got) {
		return true
	}

	return semver.Compare(got, want) >= 0
}

func canonicalSemver(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
