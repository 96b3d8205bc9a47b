package response

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/lghartmann/formhttpd/internal/headers"
)

type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusFound               StatusCode = 302
	StatusBadRequest          StatusCode = 400
	StatusNotFound            StatusCode = 404
	StatusMethodNotAllowed    StatusCode = 405
	StatusInternalServerError StatusCode = 500
)

func (s StatusCode) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFound:
		return "Found"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return ""
	}
}

// StatusLine renders the status line without its CRLF.
func StatusLine(s StatusCode) (string, error) {
	reason := s.Reason()
	if reason == "" {
		return "", fmt.Errorf("unrecognized status code %d", int(s))
	}
	return "HTTP/1.1 " + strconv.Itoa(int(s)) + " " + reason, nil
}

// Response is what a handler hands back to the connection. Found responses
// carry Location and an empty body.
type Response struct {
	Status      StatusCode
	Location    string
	ContentType string
	Body        []byte
}

const htmlContentType = "text/html; charset=utf-8"

func OK(body []byte) Response {
	return Response{Status: StatusOK, ContentType: htmlContentType, Body: body}
}

func Found(location string) Response {
	return Response{Status: StatusFound, Location: location}
}

func NotFound() Response {
	return errorResponse(StatusNotFound, "Not found", "Not found")
}

func MethodNotAllowed() Response {
	return errorResponse(StatusMethodNotAllowed, "Method not allowed", "Method not allowed")
}

func BadRequest(reason string) Response {
	return errorResponse(StatusBadRequest, "Bad request", reason)
}

func InternalServerError(reason string) Response {
	return errorResponse(StatusInternalServerError, "Internal server error", reason)
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>{{.Title}}</title>
  </head>
  <body>
    <h2>An error has occured:</h2>
    <p>{{.Reason}}</p>
  </body>
</html>
`))

func errorResponse(status StatusCode, title, reason string) Response {
	var b bytes.Buffer
	if err := errorPage.Execute(&b, struct{ Title, Reason string }{title, reason}); err != nil {
		b.Reset()
		b.WriteString(template.HTMLEscapeString(reason))
	}
	return Response{Status: status, ContentType: htmlContentType, Body: b.Bytes()}
}

// CORS is the fixed cross-origin policy attached to every response.
type CORS struct {
	AllowOrigin  string
	AllowMethods string
}

const DefaultAllowMethods = "GET, POST, OPTIONS"

func GetDefaultHeaders(contentLen int) headers.Headers {
	h := headers.NewHeaders()

	h.Set("content-length", strconv.Itoa(contentLen))
	h.Set("connection", "close")
	h.Set("content-type", "text/plain")

	return h
}

type Writer struct {
	writer io.Writer
}

func NewWriter(writer io.Writer) *Writer {
	return &Writer{writer: writer}
}

func (w *Writer) WriteStatusLine(statusCode StatusCode) error {
	line, err := StatusLine(statusCode)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w.writer, line+"\r\n")
	return err
}

func (w *Writer) WriteHeaders(h headers.Headers) error {
	var b bytes.Buffer
	writeHeaders(&b, h)
	_, err := w.writer.Write(b.Bytes())
	return err
}

func (w *Writer) WriteBody(p []byte) (int, error) {
	n, err := w.writer.Write(p)

	return n, err
}

// WriteResponse frames resp into a buffer through the Write* methods and
// flushes it to the connection with a single Write call.
func (w *Writer) WriteResponse(resp Response, cors CORS) error {
	h := GetDefaultHeaders(len(resp.Body))
	if resp.ContentType != "" {
		h.Replace("content-type", resp.ContentType)
	}
	if resp.Status == StatusFound {
		h.Replace("location", resp.Location)
		if len(resp.Body) == 0 {
			h.Delete("content-type")
		}
	}
	if cors.AllowOrigin != "" {
		h.Replace("access-control-allow-origin", cors.AllowOrigin)
	}
	methods := cors.AllowMethods
	if methods == "" {
		methods = DefaultAllowMethods
	}
	h.Replace("access-control-allow-methods", methods)

	var b bytes.Buffer
	framed := NewWriter(&b)
	if err := framed.WriteStatusLine(resp.Status); err != nil {
		return err
	}
	if err := framed.WriteHeaders(h); err != nil {
		return err
	}
	if _, err := framed.WriteBody(resp.Body); err != nil {
		return err
	}

	_, err := w.writer.Write(b.Bytes())
	return err
}

func writeHeaders(b *bytes.Buffer, h headers.Headers) {
	h.ForEach(func(n, v string) {
		fmt.Fprintf(b, "%s: %s\r\n", canonicalName(n), v)
	})
	b.Write(headers.CRLF)
}

// canonicalName upper-cases the first letter of every dash-separated word.
func canonicalName(name string) string {
	out := []byte(name)
	upper := true
	for i, c := range out {
		if upper && 'a' <= c && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
		upper = c == '-'
	}
	return string(out)
}
