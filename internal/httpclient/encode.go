package httpclient

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/ip0000h/reqbench/internal/feeder"
)

const (
	formContentType = "application/x-www-form-urlencoded"
	jsonContentType = "application/json"
)

// encodeForm renders the record as application/x-www-form-urlencoded.
// url.Values.Encode would sort the keys; fields must keep their source
// order, so the pairs are written by hand.
func encodeForm(record feeder.Record) []byte {
	if len(record) == 0 {
		return nil
	}
	var buf strings.Builder
	for i, field := range record {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(field.Key))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(field.Value))
	}
	return []byte(buf.String())
}

// encodeJSON renders the record as a flat JSON object with string values,
// preserving field order. An empty record yields no payload at all, not an
// empty object.
func encodeJSON(record feeder.Record) []byte {
	if len(record) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range record {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(field.Key)
		value, _ := json.Marshal(field.Value)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// appendQuery adds the record to the target's query string, after any
// parameters already present.
func appendQuery(target string, record feeder.Record) string {
	if len(record) == 0 {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		// Leave it to the request constructor to report the bad URL.
		return target
	}
	encoded := string(encodeForm(record))
	if u.RawQuery == "" {
		u.RawQuery = encoded
	} else {
		u.RawQuery += "&" + encoded
	}
	return u.String()
}
