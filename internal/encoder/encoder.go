package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/restbench/restbench/internal/logging"
	"github.com/tidwall/jsonc"
)

// FileSentinel marks a form-field value as a local file reference. The
// remainder of the value is the filesystem path.
const FileSentinel = "FILE::"

// Payload is a transport-ready request body with its adjusted headers.
type Payload struct {
	Headers map[string]string
	Body    []byte
}

// Encode shapes rawBody according to the effective Content-Type header and
// returns the final headers and body bytes. The input header map is never
// modified.
//
//   - multipart/form-data: rawBody is a JSON map; string values starting with
//     FILE:: are attached as file parts. The header is rewritten with the
//     multipart boundary. A missing referenced file is skipped with a warning.
//   - application/x-www-form-urlencoded: rawBody is a JSON map re-serialized
//     as percent-encoded key=value pairs.
//   - JSON intent (isJSON): body passed through, Content-Type defaulted to
//     application/json only when the caller set none.
//   - anything else: body passed through untouched.
//
// A malformed JSON map for the multipart/urlencoded branches degrades to an
// empty payload; it never fails the send.
func Encode(headers map[string]string, rawBody string, isJSON bool, log logging.Logger) Payload {
	log = logging.OrNoop(log)
	out := Payload{Headers: cloneHeaders(headers)}

	contentType := effectiveContentType(headers)
	switch {
	case strings.Contains(contentType, "multipart/form-data"):
		out.Body = encodeMultipart(out.Headers, rawBody, log)
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		out.Body = encodeURLEncoded(rawBody, log)
	case isJSON:
		out.Body = []byte(rawBody)
		if contentType == "" {
			out.Headers["Content-Type"] = "application/json"
		}
	default:
		out.Body = []byte(rawBody)
	}

	return out
}

// bodyMap parses a JSON-encoded map, tolerating comments and trailing commas.
func bodyMap(rawBody string) (map[string]any, error) {
	if strings.TrimSpace(rawBody) == "" {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(rawBody)), &fields); err != nil {
		return nil, fmt.Errorf("body is not a JSON object: %w", err)
	}
	return fields, nil
}

func encodeURLEncoded(rawBody string, log logging.Logger) []byte {
	fields, err := bodyMap(rawBody)
	if err != nil {
		log.Warn("urlencoded body malformed, sending empty payload: %v", err)
		return nil
	}

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, stringify(v))
	}
	return []byte(values.Encode())
}

func encodeMultipart(headers map[string]string, rawBody string, log logging.Logger) []byte {
	fields, err := bodyMap(rawBody)
	if err != nil {
		log.Warn("multipart body malformed, sending empty payload: %v", err)
		fields = nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	// Deterministic part order.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := fields[key]
		if s, ok := value.(string); ok && strings.HasPrefix(s, FileSentinel) {
			writeFilePart(writer, key, strings.TrimPrefix(s, FileSentinel), log)
			continue
		}
		if err := writer.WriteField(key, stringify(value)); err != nil {
			log.Warn("multipart field %q dropped: %v", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		log.Warn("failed to finalize multipart body: %v", err)
	}

	// The caller's bare Content-Type is replaced so the boundary travels
	// with the header.
	deleteHeader(headers, "Content-Type")
	headers["Content-Type"] = writer.FormDataContentType()

	return buf.Bytes()
}

// writeFilePart attaches a referenced local file as a binary part named
// after the field key and the file's base name. A file that cannot be read
// is skipped, not a hard failure.
func writeFilePart(writer *multipart.Writer, key, path string, log logging.Logger) {
	file, err := os.Open(path)
	if err != nil {
		log.Warn("multipart file for field %q skipped: %v", key, err)
		return
	}
	defer file.Close()

	part, err := writer.CreateFormFile(key, filepath.Base(path))
	if err != nil {
		log.Warn("multipart file part %q skipped: %v", key, err)
		return
	}
	if _, err := io.Copy(part, file); err != nil {
		log.Warn("multipart file part %q truncated: %v", key, err)
	}
}

// effectiveContentType finds the Content-Type header case-insensitively.
func effectiveContentType(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return strings.ToLower(v)
		}
	}
	return ""
}

func deleteHeader(headers map[string]string, name string) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
}

func cloneHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	return out
}

// stringify renders a decoded JSON value as a form value. Strings pass
// through; compound values are re-encoded as JSON.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64, bool:
		return fmt.Sprintf("%v", val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}
