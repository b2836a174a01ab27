package buildinfo

// These variables are set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/homeworkbot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/homeworkbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/homeworkbot/core/buildinfo.Date=2026-02-26T12:00:00Z'
//
// Defaults keep local runs readable in logs.
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders a compact version line for startup logs and /stats.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
