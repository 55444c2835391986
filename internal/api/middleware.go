// Package api implements the read-only preview API using chi.
package api

import (
	"net/http"
	"strings"
)

// HideDotfiles returns middleware that answers 404 for any path with a
// segment starting with ".", such as .git or the search database.
func HideDotfiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, seg := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(seg, ".") {
				writeJSON(w, http.StatusNotFound, errorBody("not found"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// NoCache marks responses as revalidate-on-every-use; the preview serves
// files that change under it.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// StaticHandler serves the repository root, the way the viewer is
// deployed, with hidden paths left out.
func StaticHandler(root string) http.Handler {
	return NoCache(HideDotfiles(http.FileServer(http.Dir(root))))
}
