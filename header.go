package flux

import "strings"

// Header is a case-preserving, ordered multimap of HTTP header fields. Unlike
// net/http.Header it keeps the casing a caller supplied (e.g. "x-request-id"
// stays lowercase) while still matching names case-insensitively, per spec.md
// §3's "case-preserving, last-write-wins on merge" requirement.
type Header struct {
	fields []headerField
}

type headerField struct {
	name  string
	value string
}

// NewHeader builds a Header from name/value pairs, applying Set semantics
// (last-write-wins) for repeated names in order.
func NewHeader(pairs ...string) Header {
	var h Header
	for i := 0; i+1 < len(pairs); i += 2 {
		h = h.Set(pairs[i], pairs[i+1])
	}
	return h
}

// Get returns the value of the first field matching name case-insensitively,
// and whether it was present.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return f.value, true
		}
	}
	return "", false
}

// Values returns every value stored under name, case-insensitively, in
// insertion order.
func (h Header) Values(name string) []string {
	var out []string
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			out = append(out, f.value)
		}
	}
	return out
}

// Has reports whether name is present, case-insensitively.
func (h Header) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Set returns a new Header with name set to value, replacing any prior
// values for name (case-insensitive match) and preserving the casing of
// name as given here — last-write-wins.
func (h Header) Set(name, value string) Header {
	out := make([]headerField, 0, len(h.fields)+1)
	replaced := false
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			if !replaced {
				out = append(out, headerField{name, value})
				replaced = true
			}
			continue
		}
		out = append(out, f)
	}
	if !replaced {
		out = append(out, headerField{name, value})
	}
	return Header{fields: out}
}

// Add appends a value under name without removing existing values.
func (h Header) Add(name, value string) Header {
	out := make([]headerField, len(h.fields), len(h.fields)+1)
	copy(out, h.fields)
	out = append(out, headerField{name, value})
	return Header{fields: out}
}

// Del returns a new Header with every field matching name removed.
func (h Header) Del(name string) Header {
	out := make([]headerField, 0, len(h.fields))
	for _, f := range h.fields {
		if !strings.EqualFold(f.name, name) {
			out = append(out, f)
		}
	}
	return Header{fields: out}
}

// Merge returns a new Header containing h's fields overridden by other's:
// any name present in other replaces all of h's values for that name, and
// other's casing wins — "last-write-wins on merge" per spec.md §3.
func (h Header) Merge(other Header) Header {
	result := h
	seen := map[string]bool{}
	for _, f := range other.fields {
		key := strings.ToLower(f.name)
		if !seen[key] {
			result = result.Del(f.name)
			seen[key] = true
		}
		result = result.Add(f.name, f.value)
	}
	return result
}

// Names returns the distinct header names in first-seen order, with the
// casing of their first occurrence.
func (h Header) Names() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range h.fields {
		key := strings.ToLower(f.name)
		if !seen[key] {
			seen[key] = true
			out = append(out, f.name)
		}
	}
	return out
}

// Len reports the number of stored fields (not distinct names).
func (h Header) Len() int { return len(h.fields) }

// Each calls fn for every field in insertion order.
func (h Header) Each(fn func(name, value string)) {
	for _, f := range h.fields {
		fn(f.name, f.value)
	}
}

// SortedNames returns the distinct header names sorted case-insensitively,
// used by components (e.g. the deduplicator's fingerprint) that need a
// canonical, order-independent view of the header set.
func (h Header) SortedNames() []string {
	names := h.Names()
	// insertion sort: header counts are small and this keeps the package
	// free of an extra "sort" import pull-in for such a tiny slice.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && strings.ToLower(names[j-1]) > strings.ToLower(names[j]); j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
