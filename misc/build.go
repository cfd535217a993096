package misc

// These variables are changed in compile time.
var (
	// Build is an application build time.
	Build = "now"

	// Version is an application version.
	Version = "dev"
)

// BuildInfo returns human-readable version line of the application.
func BuildInfo(name string) string {
	return name + " " + Version + " (built " + Build + ")"
}
