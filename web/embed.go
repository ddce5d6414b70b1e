// Package web embeds the static control panel served at the root path.
package web

import "embed"

//go:embed index.html
var FS embed.FS

// Index returns the control panel page.
func Index() ([]byte, error) {
	return FS.ReadFile("index.html")
}
