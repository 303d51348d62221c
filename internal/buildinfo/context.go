// Package buildinfo holds build-time metadata injected via linker flags,
// kept separate from internal/config so a rebuild's provenance is never
// mixed into user-editable settings.
package buildinfo

// Version, BuildDate, and Commit are set at build time with:
//
//	go build -ldflags "-X github.com/nowsound-go/nowsound/internal/buildinfo.Version=v1.2.3 ..."
//
// Unset fields report "unknown" rather than the empty string.
var (
	Version   = ""
	BuildDate = ""
	Commit    = ""
)

// String formats version/commit/build-date for the version subcommand's
// output; the control surface's /version endpoint serves Get() instead.
func String() string {
	return "nowsound " + valueOrUnknown(Version) + " (" + valueOrUnknown(Commit) + ", built " + valueOrUnknown(BuildDate) + ")"
}

// Info bundles the three fields for JSON responses.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the current build info, substituting "unknown" for any
// field the linker didn't set.
func Get() Info {
	return Info{
		Version:   valueOrUnknown(Version),
		Commit:    valueOrUnknown(Commit),
		BuildDate: valueOrUnknown(BuildDate),
	}
}

func valueOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
