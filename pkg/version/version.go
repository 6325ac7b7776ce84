package version

// Version is the relay version, overridden at build time via
// -ldflags "-X github.com/coderelay/relay/pkg/version.Version=...".
var Version = "dev"

// Commit is the git commit the binary was built from, set the same way.
var Commit = "unknown"
