package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:static
var staticFS embed.FS

var staticRoot = mustSub(staticFS, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// handleStatic serves the embedded page. Unknown paths fall back to
// index.html so client-side links keep working.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path != "" {
		if f, err := staticRoot.Open(path); err != nil {
			path = ""
		} else {
			f.Close()
		}
	}
	if path == "" || strings.HasSuffix(path, "/") {
		http.ServeFileFS(w, r, staticRoot, "index.html")
		return
	}
	http.ServeFileFS(w, r, staticRoot, path)
}
