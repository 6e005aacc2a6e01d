// Package misc keeps program identity. Version and hash are set at link
// time:
//
//	go build -ldflags "-X cssmod/misc.version=1.2.0 -X cssmod/misc.gitHash=abcdef0"
package misc

import "runtime/debug"

const appName = "cssmod"

var (
	version = "dev"
	gitHash = ""
)

// GetAppName returns program name.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns revision program was built from, falling back to vcs
// information recorded by the toolchain.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
