package flux

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/fluxhttp/flux/fluxerr"
)

// Body is the tagged variant described in spec.md §3: a request payload that
// knows its own Content-Type and defers encoding until Encode is called.
// JSON bodies encode lazily, at send time, per spec.md §4 design notes.
type Body interface {
	// ContentType returns the header value this body should be sent with.
	ContentType() string
	// Encode produces the wire bytes for this body. Called at send time.
	Encode() ([]byte, error)
}

// boundaryBody is implemented by bodies that frame their payload with a
// boundary string that must also appear in the Content-Type header
// (invariant I4). Only MultipartBody implements it today.
type boundaryBody interface {
	Boundary() string
}

// Boundary returns the framing boundary for b, and whether b has one.
func Boundary(b Body) (string, bool) {
	if bb, ok := b.(boundaryBody); ok {
		return bb.Boundary(), true
	}
	return "", false
}

// --- Data ---

// DataBody is raw bytes with an explicit content type, defaulting to
// application/octet-stream per spec.md §3(a).
type DataBody struct {
	Bytes       []byte
	contentType string
}

// NewDataBody constructs a DataBody. An empty contentType defaults to
// application/octet-stream.
func NewDataBody(data []byte, contentType string) DataBody {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return DataBody{Bytes: data, contentType: contentType}
}

func (d DataBody) ContentType() string     { return d.contentType }
func (d DataBody) Encode() ([]byte, error) { return d.Bytes, nil }

// --- JSON ---

// JSONEncoder encodes v into wire bytes. Encode is deferred to send time so
// the encodable value can still change up to that point (spec.md §9 design
// note: "the encoder captures an opaque encodable callable").
type JSONEncoder func(v any) ([]byte, error)

// JSONBody encodes value lazily at send time using Encoder (or
// encoding/json.Marshal if Encoder is nil).
type JSONBody struct {
	Value   any
	Encoder JSONEncoder
}

// NewJSONBody constructs a JSONBody with the given value and, optionally, a
// custom encoder (e.g. one with a specific date strategy, per spec.md §6).
func NewJSONBody(value any, encoder JSONEncoder) JSONBody {
	return JSONBody{Value: value, Encoder: encoder}
}

func (j JSONBody) ContentType() string { return "application/json; charset=utf-8" }

func (j JSONBody) Encode() ([]byte, error) {
	enc := j.Encoder
	if enc == nil {
		enc = defaultJSONEncoder
	}
	b, err := enc(j.Value)
	if err != nil {
		return nil, fluxerr.EncodingErrorOf(err)
	}
	return b, nil
}

func defaultJSONEncoder(v any) ([]byte, error) { return json.Marshal(v) }

// --- Form ---

// FormField is one name/value pair in a Form body. A slice (rather than a
// map) preserves caller-supplied ordering and allows repeated names.
type FormField struct {
	Name  string
	Value string
}

// FormBody is an HTML5 application/x-www-form-urlencoded body (spec.md §3(c)).
type FormBody struct {
	Fields []FormField
}

// NewFormBody constructs a FormBody from name/value pairs.
func NewFormBody(fields ...FormField) FormBody {
	return FormBody{Fields: fields}
}

func (f FormBody) ContentType() string { return "application/x-www-form-urlencoded" }

func (f FormBody) Encode() ([]byte, error) {
	var sb strings.Builder
	for i, field := range f.Fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(encodeFormValue(field.Name))
		sb.WriteByte('=')
		sb.WriteString(encodeFormValue(field.Value))
	}
	return []byte(sb.String()), nil
}

// encodeFormValue applies the HTML5 x-www-form-urlencoded rules from
// spec.md §6: alphanumerics and -_.~ pass through literally, space becomes
// '+', everything else is percent-encoded.
func encodeFormValue(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isFormSafe(c):
			sb.WriteByte(c)
		case c == ' ':
			sb.WriteByte('+')
		default:
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}

func isFormSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	default:
		return false
	}
}

// --- Multipart ---

// MultipartPart is one section of a multipart body (spec.md §3). A non-empty
// Filename toggles file-upload semantics in the Content-Disposition header.
type MultipartPart struct {
	Name     string
	Filename string
	Bytes    []byte
	MIME     string
}

// detectedMIME returns p.MIME, or a sniffed MIME type from p.Bytes when
// p.MIME is empty and p has a filename (i.e. is a file part), per SPEC_FULL
// §5.11.
func (p MultipartPart) detectedMIME() string {
	if p.MIME != "" {
		return p.MIME
	}
	if p.Filename == "" {
		return ""
	}
	return mimetype.Detect(p.Bytes).String()
}

// MultipartBody is an RFC 2388 multipart/form-data body (spec.md §3(d)). The
// boundary is generated once, at construction, so the same value backs both
// ContentType and Encode — satisfying invariant I4 by construction rather
// than by keeping two values in sync (spec.md §9 design note).
type MultipartBody struct {
	Parts    []MultipartPart
	boundary string
}

// NewMultipartBody constructs a MultipartBody with a fresh UUID-derived
// boundary, per spec.md §6's "Boundary-<UUID>" wire format.
func NewMultipartBody(parts []MultipartPart) MultipartBody {
	return MultipartBody{Parts: parts, boundary: "Boundary-" + uuid.NewString()}
}

// NewMultipartBodyWithBoundary is the same as NewMultipartBody but accepts an
// explicit boundary, mainly for tests that assert on exact wire bytes.
func NewMultipartBodyWithBoundary(parts []MultipartPart, boundary string) MultipartBody {
	return MultipartBody{Parts: parts, boundary: boundary}
}

func (m MultipartBody) Boundary() string { return m.boundary }

func (m MultipartBody) ContentType() string {
	return "multipart/form-data; boundary=" + m.boundary
}

func (m MultipartBody) Encode() ([]byte, error) {
	var sb strings.Builder
	for _, part := range m.Parts {
		sb.WriteString("--")
		sb.WriteString(m.boundary)
		sb.WriteString("\r\n")

		sb.WriteString(`Content-Disposition: form-data; name="`)
		sb.WriteString(part.Name)
		sb.WriteByte('"')
		if part.Filename != "" {
			sb.WriteString(`; filename="`)
			sb.WriteString(part.Filename)
			sb.WriteByte('"')
		}
		sb.WriteString("\r\n")

		if mime := part.detectedMIME(); mime != "" {
			sb.WriteString("Content-Type: ")
			sb.WriteString(mime)
			sb.WriteString("\r\n")
		}

		sb.WriteString("\r\n")
		sb.Write(part.Bytes)
		sb.WriteString("\r\n")
	}
	sb.WriteString("--")
	sb.WriteString(m.boundary)
	sb.WriteString("--\r\n")
	return []byte(sb.String()), nil
}
