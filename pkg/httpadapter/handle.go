package httpadapter

import "net/http"

// HttpHandle pairs a Go 1.22 mux pattern ("GET /path/{name}") with its handler.
type HttpHandle struct {
	Path    string
	Handler func(w http.ResponseWriter, r *http.Request)
}

// Register adds every route to mux.
func Register(mux *http.ServeMux, routes ...HttpHandle) {
	for _, route := range routes {
		mux.HandleFunc(route.Path, route.Handler)
	}
}
