package cli

import (
	"runtime/debug"
	"strings"
)

const (
	devVersion       = "dev"
	develMainVersion = "(devel)"
	revisionLength   = 12
)

var readBuildInfo = debug.ReadBuildInfo

// resolvedVersion prefers an injected release version, then the module
// version, then the VCS revision stamped by the Go toolchain.
func resolvedVersion(injected string) string {
	injected = strings.TrimSpace(injected)
	if injected != "" && injected != devVersion {
		return injected
	}

	info, ok := readBuildInfo()
	if !ok || info == nil {
		return devVersion
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != develMainVersion {
		return v
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = strings.TrimSpace(s.Value)
	}
	revision := settings["vcs.revision"]
	if revision == "" {
		return devVersion
	}
	if len(revision) > revisionLength {
		revision = revision[:revisionLength]
	}
	if strings.EqualFold(settings["vcs.modified"], "true") {
		revision += "-dirty"
	}
	return revision
}
