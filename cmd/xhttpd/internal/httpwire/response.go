package httpwire

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// ResponseWriter formats a response onto w. Status line and headers are
// buffered until EndHeaders; errors are sticky and reported by the next call
// that returns one.
type ResponseWriter struct {
	dst io.Writer
	buf *bufio.Writer
}

func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{dst: w, buf: bufio.NewWriter(w)}
}

// StartResponse writes the status line.
func (w *ResponseWriter) StartResponse(status int) {
	fmt.Fprintf(w.buf, "HTTP/1.0 %d %s\r\n", status, http.StatusText(status))
}

func (w *ResponseWriter) SendHeader(name, value string) {
	fmt.Fprintf(w.buf, "%s: %s\r\n", name, value)
}

// EndHeaders terminates the header block and flushes it to the connection.
func (w *ResponseWriter) EndHeaders() error {
	w.buf.WriteString("\r\n")
	return w.buf.Flush()
}

func (w *ResponseWriter) SendData(p []byte) error {
	if _, err := w.buf.Write(p); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *ResponseWriter) SendString(s string) error {
	if _, err := w.buf.WriteString(s); err != nil {
		return err
	}
	return w.buf.Flush()
}

// ReadFrom streams r straight into the underlying writer after flushing any
// buffered head, so a *os.File source reaches the socket's sendfile path.
func (w *ResponseWriter) ReadFrom(r io.Reader) (int64, error) {
	if err := w.buf.Flush(); err != nil {
		return 0, err
	}
	// io.Copy would prefer r's WriterTo and hide the *os.File from the
	// socket, so call ReadFrom directly.
	if rf, ok := w.dst.(io.ReaderFrom); ok {
		return rf.ReadFrom(r)
	}
	return io.Copy(w.dst, r)
}

// SendError writes a complete HTML error response for status.
func (w *ResponseWriter) SendError(status int) error {
	body := fmt.Sprintf("<center><h1>%d %s</h1><hr></center>", status, http.StatusText(status))

	w.StartResponse(status)
	w.SendHeader("Content-Type", "text/html")
	w.SendHeader("Content-Length", strconv.Itoa(len(body)))
	if err := w.EndHeaders(); err != nil {
		return err
	}
	return w.SendString(body)
}
