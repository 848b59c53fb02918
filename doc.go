// Package flux defines the immutable HTTP message types shared by every
// layer of the client: Request, Response, Body, and the small header
// multimap that preserves the casing callers supplied instead of the
// canonical casing net/http.Header enforces.
//
// Everything in this package is a value type. Interceptors that need to
// change a request build a new one (see Request.With*) rather than mutating
// the one they were handed — see flux/interceptor for why that matters.
package flux
