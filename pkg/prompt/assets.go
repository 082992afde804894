package prompt

import (
	"embed"
	"io/fs"
)

//go:embed all:assets
var assetsFS embed.FS

// AssetsFS returns the embedded prompt assets rooted at assets/
func AssetsFS() (fs.FS, error) {
	return fs.Sub(assetsFS, "assets")
}
