package controllers

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// StaticFallback serves files under root for any path without a route.
// Dotfiles are never served, and directories are only listed when
// listDirectories is set (an index.html inside is always served).
func StaticFallback(root string, listDirectories bool) gin.HandlerFunc {
	fileServer := http.FileServer(staticFS{
		root:            http.Dir(root),
		listDirectories: listDirectories,
	})

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead:
		default:
			c.Header("Allow", "GET, HEAD")
			c.String(http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		// NoRoute presets 404; directory listings never call WriteHeader
		c.Status(http.StatusOK)
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}

type staticFS struct {
	root            http.FileSystem
	listDirectories bool
}

func (s staticFS) Open(name string) (http.File, error) {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return nil, fs.ErrNotExist
		}
	}

	f, err := s.root.Open(name)
	if err != nil {
		return nil, err
	}
	if s.listDirectories {
		return f, nil
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}

	index, err := s.root.Open(path.Join(name, "index.html"))
	if err != nil {
		f.Close()
		return nil, fs.ErrNotExist
	}
	index.Close()
	return f, nil
}
