package static

import (
	"bytes"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/httpwire"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/logger"
)

const indexFile = "index.html"

// Handler serves files below Root, one request per connection.
type Handler struct {
	Root string
}

func NewHandler(root string) *Handler {
	return &Handler{Root: root}
}

// HandleConnection implements core.ConnectionHandler.
func (h *Handler) HandleConnection(conn net.Conn) {
	defer conn.Close()

	log := logger.With(core.ConnLogArgs(conn)...)
	w := httpwire.NewResponseWriter(conn)

	req, err := httpwire.ReadRequest(conn)
	if err != nil {
		log.Warn("Malformed request", "error", err)
		if err := w.SendError(http.StatusBadRequest); err != nil {
			log.Debug("Failed to send error response", "error", err)
		}
		return
	}

	status, err := h.serve(w, req.Path)
	if err != nil {
		log.Warn("Response incomplete", "method", req.Method, "path", req.Path, "status", status, "error", err)
		return
	}
	log.Info("Request fulfilled", "method", req.Method, "path", req.Path, "status", status)
}

func (h *Handler) serve(w *httpwire.ResponseWriter, urlPath string) (int, error) {
	if !strings.HasPrefix(urlPath, "/") {
		return http.StatusBadRequest, w.SendError(http.StatusBadRequest)
	}
	// Syntactic check on the decoded path; the target need not exist.
	if strings.Contains(urlPath, "..") {
		return http.StatusForbidden, w.SendError(http.StatusForbidden)
	}

	target := filepath.Join(h.Root, filepath.FromSlash(urlPath))
	info, err := os.Stat(target)
	if err != nil {
		return http.StatusNotFound, w.SendError(http.StatusNotFound)
	}

	switch {
	case info.Mode().IsRegular():
		return serveFile(w, target)
	case info.IsDir():
		return serveDirectory(w, urlPath, target)
	default:
		return http.StatusNotFound, w.SendError(http.StatusNotFound)
	}
}

func serveFile(w *httpwire.ResponseWriter, name string) (int, error) {
	f, err := os.Open(name)
	if err != nil {
		return http.StatusNotFound, w.SendError(http.StatusNotFound)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return http.StatusInternalServerError, w.SendError(http.StatusInternalServerError)
	}

	w.StartResponse(http.StatusOK)
	w.SendHeader("Content-Type", httpwire.MimeType(name))
	w.SendHeader("Content-Length", strconv.FormatInt(info.Size(), 10))
	if err := w.EndHeaders(); err != nil {
		return http.StatusOK, err
	}

	n, err := w.ReadFrom(f)
	if err != nil {
		return http.StatusOK, fmt.Errorf("sent %d of %d bytes: %w", n, info.Size(), err)
	}
	return http.StatusOK, nil
}

func serveDirectory(w *httpwire.ResponseWriter, urlPath, dir string) (int, error) {
	index := filepath.Join(dir, indexFile)
	if info, err := os.Stat(index); err == nil && info.Mode().IsRegular() {
		return serveFile(w, index)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return http.StatusNotFound, w.SendError(http.StatusNotFound)
	}

	body := renderListing(urlPath, entries)

	w.StartResponse(http.StatusOK)
	w.SendHeader("Content-Type", "text/html")
	w.SendHeader("Content-Length", strconv.Itoa(len(body)))
	if err := w.EndHeaders(); err != nil {
		return http.StatusOK, err
	}
	return http.StatusOK, w.SendData(body)
}

// renderListing links every immediate child of the directory relative to
// the request path.
func renderListing(urlPath string, entries []os.DirEntry) []byte {
	// A path without a trailing slash resolves relative links against its
	// parent, so they need the directory's own name in front.
	prefix := "./"
	if !strings.HasSuffix(urlPath, "/") {
		prefix = url.PathEscape(path.Base(urlPath)) + "/"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<html><body><h2>Directory listing for %s</h2><ul>\n", html.EscapeString(urlPath))
	for _, e := range entries {
		name := e.Name()
		if name == "." || name == ".." {
			continue
		}
		href := prefix + url.PathEscape(name)
		if e.IsDir() {
			href += "/"
			name += "/"
		}
		fmt.Fprintf(&buf, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(href), html.EscapeString(name))
	}
	buf.WriteString("</ul></body></html>\n")
	return buf.Bytes()
}

var _ core.ConnectionHandler = (*Handler)(nil)
