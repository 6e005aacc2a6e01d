package config

//go:generate go tool go-enum --marshal --names --nocase --mustparse

// HostStyle specifies path separator style of source paths reported at
// runtime lookups.
// ENUM(auto, posix, windows)
type HostStyle int

// Windows tells if lookups issued by program built on goos use backslash
// separated source paths.
func (h HostStyle) Windows(goos string) bool {
	switch h {
	case HostStyleWindows:
		return true
	case HostStylePosix:
		return false
	default:
		return goos == "windows"
	}
}
