package version

// Version is the semantic version of the tool, reported by --version.
const Version = "0.3.0"
