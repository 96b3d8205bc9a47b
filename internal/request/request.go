package request

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lghartmann/formhttpd/internal/form"
	"github.com/lghartmann/formhttpd/internal/headers"
)

const (
	DefaultMaxHeaderBytes = 8 << 10
	DefaultMaxBodyBytes   = 1 << 20
)

type RequestLine struct {
	HttpVersion   string
	RequestTarget string
	Method        string
}

// ValidHTTP accepts HTTP/1.0 and HTTP/1.1. An empty version is allowed
// since only method and target are required on the request line.
func (r *RequestLine) ValidHTTP() bool {
	if r.HttpVersion == "" {
		return true
	}
	split := strings.Split(r.HttpVersion, "/")
	if len(split) != 2 || split[0] != "HTTP" {
		return false
	}

	return split[1] == "1.1" || split[1] == "1.0"
}

type parserState string

const (
	StateInit    parserState = "init"
	StateHeaders parserState = "headers"
	StateBody    parserState = "body"
	StateDone    parserState = "done"
)

// Limits bounds how much a single request may make the server buffer.
type Limits struct {
	MaxHeaderBytes int
	MaxBodyBytes   uint64
}

func (l Limits) withDefaults() Limits {
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if l.MaxBodyBytes == 0 {
		l.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return l
}

type Request struct {
	RequestLine RequestLine
	Headers     headers.Headers
	// Head is the request line and header block as received, without the
	// terminating blank line.
	Head string
	// RawBody and Form stay nil unless a POST carried a non-zero
	// Content-Length.
	RawBody []byte
	Form    form.Values

	state parserState
}

func NewRequest() *Request {
	return &Request{
		state:   StateInit,
		Headers: headers.NewHeaders(),
	}
}

// Path returns the request target without its query component.
func (r *Request) Path() string {
	path, _, _ := strings.Cut(r.RequestLine.RequestTarget, "?")
	return path
}

// Query decodes the query component of the request target.
func (r *Request) Query() form.Values {
	_, query, ok := strings.Cut(r.RequestLine.RequestTarget, "?")
	if !ok {
		return form.Values{}
	}
	return form.Decode(query)
}

func (r *Request) HasBody() bool {
	return r.Form != nil
}

func (r *Request) done() bool {
	return r.state == StateDone
}

var ErrMalformedRequestLine error = fmt.Errorf("malformed request-line")
var ErrUnsupportedHTTPVersion error = fmt.Errorf("unsupported http version")
var ErrConnectionClosed error = fmt.Errorf("connection closed by client")
var ErrHeaderTooLarge error = fmt.Errorf("request header too large")
var ErrBodyTooLarge error = fmt.Errorf("request body too large")
var ErrShortBody error = fmt.Errorf("request body shorter than content-length")

// IsClientError reports whether err came from a malformed or oversized
// request, which deserves a 400 rather than a silent close.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrMalformedRequestLine,
		ErrUnsupportedHTTPVersion,
		ErrHeaderTooLarge,
		ErrBodyTooLarge,
		ErrShortBody,
		headers.ErrorMalformedFieldLine,
		headers.ErrorMalformedFieldName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// RequestFromReader reads one request from reader: the request line, the
// header block up to the blank line and, for a POST with a Content-Length,
// exactly that many body bytes.
func RequestFromReader(reader *bufio.Reader, limits Limits) (*Request, error) {
	limits = limits.withDefaults()
	request := NewRequest()

	var head strings.Builder
	for !request.done() {
		switch request.state {
		case StateInit, StateHeaders:
			// the blank terminator line does not count against the budget
			line, err := readLine(reader, limits.MaxHeaderBytes-head.Len()+len(headers.CRLF))
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil, ErrConnectionClosed
				}
				return nil, err
			}

			trimmed := strings.TrimRight(line, "\r\n")
			if trimmed != "" && head.Len()+len(line) > limits.MaxHeaderBytes {
				return nil, ErrHeaderTooLarge
			}
			if request.state == StateInit {
				rl, err := parseRequestLine(trimmed)
				if err != nil {
					return nil, err
				}
				request.RequestLine = *rl
				request.state = StateHeaders
				head.WriteString(line)
				continue
			}

			if trimmed == "" {
				request.state = StateBody
				continue
			}
			if err := request.addHeader(trimmed); err != nil {
				return nil, err
			}
			head.WriteString(line)
		case StateBody:
			if err := request.readBody(reader, limits.MaxBodyBytes); err != nil {
				return nil, err
			}
			request.state = StateDone
		default:
			panic("somehow we have programmed poorly")
		}
	}

	request.Head = head.String()
	return request, nil
}

// addHeader stores one field line. A repeated Content-Length must repeat
// the same value; it is kept once rather than joined.
func (r *Request) addHeader(fieldLine string) error {
	name, value, err := headers.ParseLine(fieldLine)
	if err != nil {
		return err
	}
	if strings.EqualFold(name, "content-length") && r.Headers.Has(name) {
		if r.Headers.Get(name) != value {
			return fmt.Errorf("%w: conflicting content-length %q and %q",
				headers.ErrorMalformedFieldLine, r.Headers.Get(name), value)
		}
		return nil
	}
	r.Headers.Set(name, value)
	return nil
}

func (r *Request) readBody(reader io.Reader, limit uint64) error {
	length := r.Headers.ContentLength()
	if r.RequestLine.Method != "POST" || length == 0 {
		return nil
	}
	if length > limit {
		return fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(io.LimitReader(reader, int64(length)), body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return ErrShortBody
		}
		return fmt.Errorf("reading body: %w", err)
	}

	r.RawBody = body
	r.Form = form.Decode(string(body))
	return nil
}

// readLine reads through the next '\n', failing once the line would exceed
// remaining bytes.
func readLine(reader *bufio.Reader, remaining int) (string, error) {
	var line []byte
	for {
		frag, err := reader.ReadSlice('\n')
		line = append(line, frag...)
		if len(line) > remaining {
			return "", ErrHeaderTooLarge
		}
		if err == nil {
			return string(line), nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return "", err
	}
}

func parseRequestLine(line string) (*RequestLine, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 || len(parts) > 3 {
		return nil, ErrMalformedRequestLine
	}

	requestLine := &RequestLine{
		Method:        parts[0],
		RequestTarget: parts[1],
	}
	if len(parts) == 3 {
		requestLine.HttpVersion = parts[2]
	}

	if !requestLine.ValidHTTP() {
		return nil, ErrUnsupportedHTTPVersion
	}

	return requestLine, nil
}
