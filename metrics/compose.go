package metrics

// Composite fans every event out to each of its member Collectors, in
// order, per spec.md §4.8.
type Composite struct {
	Collectors []Collector
}

// NewComposite constructs a Composite over the given collectors.
func NewComposite(collectors ...Collector) *Composite {
	return &Composite{Collectors: collectors}
}

func (c *Composite) RecordRequest(e RequestEvent) {
	for _, col := range c.Collectors {
		col.RecordRequest(e)
	}
}

func (c *Composite) RecordError(e ErrorEvent) {
	for _, col := range c.Collectors {
		col.RecordError(e)
	}
}

func (c *Composite) RecordRetry(e RetryEvent) {
	for _, col := range c.Collectors {
		col.RecordRetry(e)
	}
}

func (c *Composite) RecordCache(e CacheEvent) {
	for _, col := range c.Collectors {
		col.RecordCache(e)
	}
}

// Predicate reports whether an event should reach a Filtered collector's
// delegate. Each field is optional; a nil field imposes no constraint.
type Predicate struct {
	// Methods restricts to this set of methods, if non-empty.
	Methods map[string]bool
	// URLMatch, if set, must return true for the event's URL (e.g. a
	// precompiled regexp's MatchString, or a substring check).
	URLMatch func(url string) bool
	// SuccessOnly restricts RequestEvents to 2xx responses.
	SuccessOnly bool
	// ErrorOnly restricts to events representing failure (ErrorEvents, and
	// non-2xx RequestEvents).
	ErrorOnly bool
	// Tags requires every listed tag to be present with the given value.
	Tags map[string]string
}

func (p Predicate) matchesMethod(method string) bool {
	if len(p.Methods) == 0 {
		return true
	}
	return p.Methods[method]
}

func (p Predicate) matchesURL(url string) bool {
	if p.URLMatch == nil {
		return true
	}
	return p.URLMatch(url)
}

func (p Predicate) matchesTags(tags map[string]string) bool {
	for k, v := range p.Tags {
		if tags[k] != v {
			return false
		}
	}
	return true
}

// Filtered forwards only events satisfying Predicate to Delegate, per
// spec.md §4.8.
type Filtered struct {
	Delegate  Collector
	Predicate Predicate
}

// NewFiltered constructs a Filtered collector.
func NewFiltered(delegate Collector, predicate Predicate) *Filtered {
	return &Filtered{Delegate: delegate, Predicate: predicate}
}

func (f *Filtered) RecordRequest(e RequestEvent) {
	p := f.Predicate
	if p.ErrorOnly && e.Successful() {
		return
	}
	if p.SuccessOnly && !e.Successful() {
		return
	}
	if !p.matchesMethod(string(e.Method)) || !p.matchesURL(e.URL) || !p.matchesTags(e.Tags) {
		return
	}
	f.Delegate.RecordRequest(e)
}

func (f *Filtered) RecordError(e ErrorEvent) {
	p := f.Predicate
	if p.SuccessOnly {
		return
	}
	if !p.matchesMethod(string(e.Method)) || !p.matchesURL(e.URL) || !p.matchesTags(e.Tags) {
		return
	}
	f.Delegate.RecordError(e)
}

func (f *Filtered) RecordRetry(e RetryEvent) {
	if !f.Predicate.matchesMethod(string(e.Method)) || !f.Predicate.matchesURL(e.URL) {
		return
	}
	f.Delegate.RecordRetry(e)
}

func (f *Filtered) RecordCache(e CacheEvent) {
	if !f.Predicate.matchesMethod(string(e.Method)) || !f.Predicate.matchesURL(e.URL) {
		return
	}
	f.Delegate.RecordCache(e)
}

// Recording collects every event verbatim, for use in tests (spec.md §4.8).
type Recording struct {
	Requests []RequestEvent
	Errors   []ErrorEvent
	Retries  []RetryEvent
	Caches   []CacheEvent
}

// NewRecording constructs an empty Recording collector.
func NewRecording() *Recording { return &Recording{} }

func (r *Recording) RecordRequest(e RequestEvent) { r.Requests = append(r.Requests, e) }
func (r *Recording) RecordError(e ErrorEvent)     { r.Errors = append(r.Errors, e) }
func (r *Recording) RecordRetry(e RetryEvent)     { r.Retries = append(r.Retries, e) }
func (r *Recording) RecordCache(e CacheEvent)     { r.Caches = append(r.Caches, e) }
