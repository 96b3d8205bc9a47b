package response

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingWriter records every Write call separately.
type countingWriter struct {
	writes [][]byte
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		status StatusCode
		want   string
	}{
		{StatusOK, "HTTP/1.1 200 OK"},
		{StatusFound, "HTTP/1.1 302 Found"},
		{StatusBadRequest, "HTTP/1.1 400 Bad Request"},
		{StatusNotFound, "HTTP/1.1 404 Not found"},
		{StatusMethodNotAllowed, "HTTP/1.1 405 Method Not Allowed"},
		{StatusInternalServerError, "HTTP/1.1 500 Internal Server Error"},
	}
	for _, tt := range tests {
		got, err := StatusLine(tt.status)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := StatusLine(StatusCode(418))
	assert.Error(t, err)
}

func TestWriteResponseOK(t *testing.T) {
	w := &countingWriter{}
	body := []byte("<p>héllo</p>")
	err := NewWriter(w).WriteResponse(OK(body), CORS{AllowOrigin: "https://my-cool-site.com"})
	require.NoError(t, err)
	require.Len(t, w.writes, 1)

	want := "HTTP/1.1 200 OK\r\n" +
		"Access-Control-Allow-Methods: GET, POST, OPTIONS\r\n" +
		"Access-Control-Allow-Origin: https://my-cool-site.com\r\n" +
		"Connection: close\r\n" +
		"Content-Length: 13\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>héllo</p>"
	assert.Equal(t, want, string(w.writes[0]))
}

func TestWriteResponseFound(t *testing.T) {
	var b bytes.Buffer
	resp := Found("/tech")
	assert.Empty(t, resp.Body)

	require.NoError(t, NewWriter(&b).WriteResponse(resp, CORS{}))
	out := b.String()
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 302 Found\r\n"))
	assert.Contains(t, out, "Location: /tech\r\n")
	assert.Contains(t, out, "Content-Length: 0\r\n")
	assert.NotContains(t, out, "Content-Type")
	assert.NotContains(t, out, "Access-Control-Allow-Origin")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n"))
}

func TestErrorResponses(t *testing.T) {
	resp := InternalServerError("Couldn't get arguments from url <id>")
	assert.Equal(t, StatusInternalServerError, resp.Status)
	assert.Contains(t, string(resp.Body), "Couldn&#39;t get arguments from url &lt;id&gt;")

	assert.Equal(t, StatusNotFound, NotFound().Status)
	assert.Contains(t, string(NotFound().Body), "Not found")
	assert.Equal(t, StatusMethodNotAllowed, MethodNotAllowed().Status)
	assert.Equal(t, StatusBadRequest, BadRequest("malformed request-line").Status)
}

func TestWriteStatusLineAndHeaders(t *testing.T) {
	var b bytes.Buffer
	w := NewWriter(&b)
	require.NoError(t, w.WriteStatusLine(StatusBadRequest))
	require.NoError(t, w.WriteHeaders(GetDefaultHeaders(0)))
	_, err := w.WriteBody([]byte("x"))
	require.NoError(t, err)

	assert.Equal(t, "HTTP/1.1 400 Bad Request\r\n"+
		"Connection: close\r\n"+
		"Content-Length: 0\r\n"+
		"Content-Type: text/plain\r\n"+
		"\r\nx", b.String())

	assert.Error(t, w.WriteStatusLine(StatusCode(999)))
}

func TestWriteResponseUnknownStatusWritesNothing(t *testing.T) {
	w := &countingWriter{}
	err := NewWriter(w).WriteResponse(Response{Status: StatusCode(418)}, CORS{})
	assert.Error(t, err)
	assert.Empty(t, w.writes)
}
