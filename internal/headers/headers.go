package headers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Headers holds header fields keyed by their lower-cased name.
type Headers map[string]string

var CRLF = []byte("\r\n")

var ErrorMalformedFieldLine error = fmt.Errorf("malformed field line")
var ErrorMalformedFieldName error = fmt.Errorf("malformed field name")

func NewHeaders() Headers {
	return Headers{}
}

// ParseLine splits a single "name: value" field line. The line must not
// carry its CRLF terminator.
func ParseLine(fieldLine string) (string, string, error) {
	name, value, ok := strings.Cut(fieldLine, ":")
	if !ok {
		return "", "", ErrorMalformedFieldLine
	}

	if name == "" || strings.HasSuffix(name, " ") || strings.HasSuffix(name, "\t") {
		return "", "", ErrorMalformedFieldName
	}

	return strings.TrimSpace(name), strings.TrimSpace(value), nil
}

// Add parses fieldLine and stores the result.
func (h Headers) Add(fieldLine string) error {
	name, value, err := ParseLine(fieldLine)
	if err != nil {
		return err
	}
	h.Set(name, value)
	return nil
}

func (h Headers) Get(name string) string {
	return h[strings.ToLower(name)]
}

func (h Headers) Has(name string) bool {
	_, ok := h[strings.ToLower(name)]
	return ok
}

// Set stores value under name, appending to any existing value.
func (h Headers) Set(name, value string) {
	name = strings.ToLower(name)
	if v, ok := h[name]; ok {
		h[name] = v + ", " + value
		return
	}
	h[name] = value
}

func (h Headers) Replace(name, value string) {
	h[strings.ToLower(name)] = value
}

func (h Headers) Delete(name string) {
	delete(h, strings.ToLower(name))
}

// ForEach visits every field in name order.
func (h Headers) ForEach(fn func(name, value string)) {
	names := make([]string, 0, len(h))
	for n := range h {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fn(n, h[n])
	}
}

// ContentLength reports the Content-Length field. A missing or unparsable
// value counts as zero.
func (h Headers) ContentLength() uint64 {
	v, ok := h["content-length"]
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
