// Package dedupe implements spec.md §4.7's request deduplicator: concurrent
// identical requests share one in-flight execution, keyed by a fingerprint
// of method, canonical URL, sorted headers, and body hash.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/fluxhttp/flux"
)

// Exec runs req against the transport/interceptor chain and produces the
// shared result callers coalesce on.
type Exec func(req flux.Request) (flux.Response, error)

// Deduplicator coalesces concurrent calls sharing the same fingerprint into
// one execution of exec, per spec.md §4.7. Built on singleflight.Group,
// whose own coalesce-then-forget behavior removes the in-flight entry on
// every completion path (success or error) without extra bookkeeping — the
// same property the auth coordinator relies on (spec.md §4.3).
type Deduplicator struct {
	group singleflight.Group
}

// New constructs a Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{}
}

// Deduplicate runs exec(req) once per distinct Fingerprint(req) among
// concurrently overlapping calls; later callers with the same fingerprint
// observe the same response and error as the one in-flight execution.
func (d *Deduplicator) Deduplicate(req flux.Request, exec Exec) (flux.Response, error) {
	key := Fingerprint(req)
	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		return exec(req)
	})
	if err != nil {
		if resp, ok := v.(flux.Response); ok {
			return resp, err
		}
		return flux.Response{}, err
	}
	return v.(flux.Response), nil
}

// Fingerprint computes spec.md §4.7's dedupe key: method + canonical URL +
// sorted headers + body hash. Body hashing uses the encoded wire bytes for
// data/form/multipart bodies, and a best-effort encoding for JSON (falling
// back to the body's content type alone if encoding fails, so a transient
// encode failure degrades the fingerprint's precision rather than the
// deduplicator's ability to key the request at all).
func Fingerprint(req flux.Request) string {
	var sb strings.Builder
	sb.WriteString(string(req.Method()))
	sb.WriteByte('\n')
	sb.WriteString(req.URL().String())
	sb.WriteByte('\n')

	h := req.Header()
	for _, name := range h.SortedNames() {
		sb.WriteString(name)
		sb.WriteByte(':')
		for _, v := range h.Values(name) {
			sb.WriteString(v)
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}

	sb.WriteString(bodyHash(req.Body()))
	return sb.String()
}

func bodyHash(body flux.Body) string {
	if body == nil {
		return "no-body"
	}
	b, err := body.Encode()
	if err != nil {
		// Best-effort per spec.md §4.7: a JSON body whose value can't be
		// (re-)encoded yet still contributes its content type, so requests
		// with structurally different bodies don't accidentally collide.
		return "unencoded:" + body.ContentType()
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
