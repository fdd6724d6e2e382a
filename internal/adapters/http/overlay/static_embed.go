package overlay

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/**
var staticFS embed.FS

// FS returns the embedded overlay page.
func FS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

// Register attaches the websocket endpoint and the overlay page to mux.
//
//	GET /ws        -> websocket feed of display changes
//	GET /overlay/  -> browser overlay
func Register(mux *http.ServeMux, hub *Hub) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/ws", hub)
	mux.Handle("/overlay/", http.StripPrefix("/overlay/", http.FileServer(FS())))
}
