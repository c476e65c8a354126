package resource

import (
	"bytes"
	"mime"
	"net/http"
	"strings"
	"time"
)

// ServeHTTP renders live references at <prefix><id>. Revoked and unknown
// references are not found.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	id, ok := strings.CutPrefix(req.URL.Path, r.prefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		http.NotFound(w, req)
		return
	}

	doc, ok := r.lookup(id)
	if !ok {
		http.NotFound(w, req)
		return
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	if doc.Name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Name}))
	}

	http.ServeContent(w, req, doc.Name, time.Time{}, bytes.NewReader(doc.Data))
}

// Handles reports whether path belongs to the reference namespace.
func (r *Registry) Handles(path string) bool {
	return strings.HasPrefix(path, r.prefix)
}
