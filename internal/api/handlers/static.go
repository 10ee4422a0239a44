package handlers

import (
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// MethodNotAllowed answers 405 with an Allow header listing the methods
// registered for the requested path.
func MethodNotAllowed(routes func() gin.RoutesInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		var allowed []string
		for _, r := range routes() {
			if r.Path == c.Request.URL.Path {
				allowed = append(allowed, r.Method)
			}
		}
		sort.Strings(allowed)
		if len(allowed) > 0 {
			c.Header("Allow", strings.Join(allowed, ", "))
		}
		respondError(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

// Static serves files from publicDir for unmatched GET and HEAD requests and
// answers everything else with a JSON 404. Directory listings are never served.
func Static(publicDir string) gin.HandlerFunc {
	var (
		fs         http.FileSystem
		fileServer http.Handler
	)
	if publicDir != "" {
		fs = gin.Dir(publicDir, false)
		fileServer = http.FileServer(fs)
	}

	return func(c *gin.Context) {
		method := c.Request.Method
		if fs == nil || (method != http.MethodGet && method != http.MethodHead) {
			respondError(c, http.StatusNotFound, msgNotFound)
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		if !servable(fs, name) {
			respondError(c, http.StatusNotFound, msgNotFound)
			return
		}

		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}

// servable reports whether name is a file, or a directory with an index.html
func servable(fs http.FileSystem, name string) bool {
	f, err := fs.Open(name)
	if err != nil {
		return false
	}
	stat, err := f.Stat()
	_ = f.Close()
	if err != nil {
		return false
	}
	if !stat.IsDir() {
		return true
	}
	return servable(fs, path.Join(name, "index.html"))
}
