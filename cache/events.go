package cache

// Result is one of the four cache outcomes from spec.md §4.8's CacheEvent.
// It lives here, not in the metrics package, because the cache engine is
// the thing that actually knows which outcome occurred; metrics.CacheEvent
// wraps this value rather than redefining it.
type Result int

const (
	ResultMiss Result = iota
	ResultHit
	ResultRevalidated
	ResultStored
)

func (r Result) String() string {
	switch r {
	case ResultMiss:
		return "miss"
	case ResultHit:
		return "hit"
	case ResultRevalidated:
		return "revalidated"
	case ResultStored:
		return "stored"
	default:
		return "unknown"
	}
}
