// Package dashboard serves the embedded single-page status UI. The page is
// static; it polls the read API for live data.
package dashboard

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed assets
var content embed.FS

// Handler serves index.html at / and the other embedded assets at their
// own paths.
func Handler() http.Handler {
	sub, err := fs.Sub(content, "assets")
	if err != nil {
		panic(err) // the embedded tree always contains assets/
	}
	return http.FileServer(http.FS(sub))
}
