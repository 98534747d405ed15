package version

// Set at build time with -ldflags "-X github.com/jon4hz/learnlog/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = ""
)
