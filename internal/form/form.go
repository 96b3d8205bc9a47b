// Package form decodes and encodes application/x-www-form-urlencoded
// payloads.
package form

import (
	"net/url"
	"sort"
	"strings"
)

// Values maps a field name to its value. A repeated field keeps the last
// value seen.
type Values map[string]string

func (v Values) Get(key string) string {
	return v[key]
}

func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

func (v Values) Set(key, value string) {
	v[key] = value
}

// Decode parses pairs separated by '&'. A pair without '=' is kept with an
// empty value. '+' decodes to a space and percent escapes are resolved in
// both keys and values; an invalid escape leaves the text as it was.
// Values are trimmed, keys are not.
func Decode(data string) Values {
	values := Values{}
	for _, pair := range strings.Split(data, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		values[unescape(key)] = strings.TrimSpace(unescape(value))
	}
	return values
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if !strings.Contains(s, "%") {
		return s
	}
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

// Encode renders v with keys in sorted order.
func Encode(v Values) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v[k]))
	}
	return b.String()
}
