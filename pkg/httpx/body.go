package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Cap on how much of a body peekBodyField will buffer.
const maxPeekBytes = 1 << 16

// peekBodyField reads a string field out of a JSON request body and then
// puts the body back so the handler can decode it again.
func peekBodyField(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var body map[string]any
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	if v, ok := body[field].(string); ok {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return ""
}
