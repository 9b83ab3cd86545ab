package version

// Build information set by ldflags
var (
	Version = "dev"     // -X github.com/gapurov/simple-dotfiles/internal/version.Version={{.Version}}
	Commit  = "unknown" // -X github.com/gapurov/simple-dotfiles/internal/version.Commit={{.Commit}}
	Date    = "unknown" // -X github.com/gapurov/simple-dotfiles/internal/version.Date={{.Date}}
)
