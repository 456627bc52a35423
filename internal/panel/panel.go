package panel

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"time"
)

//go:embed web
var content embed.FS

// indexFile is rendered with the WebSocket path before serving.
const indexFile = "index.html"

// Handler returns an http.Handler that serves the dashboard.
//
// When dir is non-empty and the directory exists, assets are served from the
// filesystem (no recompile needed after editing the page). Otherwise the
// embedded assets are used. wsPath is written into index.html so the page
// connects back to the relay's WebSocket endpoint.
//
// Returns an error if index.html is missing or is not a valid template.
func Handler(dir, wsPath string) (http.Handler, error) {
	var assets fs.FS

	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			assets = os.DirFS(dir)
		}
	}

	// Fall back to embedded assets if dir was empty or didn't exist
	if assets == nil {
		webFS, err := fs.Sub(content, "web")
		if err != nil {
			return nil, fmt.Errorf("loading embedded web assets: %w", err)
		}
		assets = webFS
	}

	index, err := renderIndex(assets, wsPath)
	if err != nil {
		return nil, err
	}

	fileServer := http.FileServer(http.FS(assets))
	loaded := time.Now()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		upath := path.Clean("/" + r.URL.Path)
		if upath == "/" || upath == "/"+indexFile {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			http.ServeContent(w, r, indexFile, loaded, bytes.NewReader(index))
			return
		}

		fileServer.ServeHTTP(w, r)
	}), nil
}

type indexData struct {
	WebSocketPath string
}

func renderIndex(assets fs.FS, wsPath string) ([]byte, error) {
	raw, err := fs.ReadFile(assets, indexFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", indexFile, err)
	}

	tmpl, err := template.New(indexFile).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", indexFile, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, indexData{WebSocketPath: wsPath}); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", indexFile, err)
	}
	return buf.Bytes(), nil
}
