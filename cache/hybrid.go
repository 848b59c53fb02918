package cache

// Hybrid composes a fast in-memory Storage in front of a slower persistent
// one, per SPEC_FULL §5.5: disk hits are promoted into memory so a second
// lookup for the same key is served without touching disk, while every
// write goes to both tiers so a process restart still finds everything the
// disk tier has.
type Hybrid struct {
	Memory Storage
	Disk   Storage
}

// NewHybrid composes memory in front of disk.
func NewHybrid(memory, disk Storage) *Hybrid {
	return &Hybrid{Memory: memory, Disk: disk}
}

// Get checks memory first; a disk hit is promoted into memory before it is
// returned.
func (h *Hybrid) Get(key string) (Entry, bool) {
	if entry, ok := h.Memory.Get(key); ok {
		return entry, true
	}
	entry, ok := h.Disk.Get(key)
	if !ok {
		return Entry{}, false
	}
	h.Memory.Set(key, entry)
	return entry, true
}

// Set writes through to both tiers.
func (h *Hybrid) Set(key string, entry Entry) error {
	if err := h.Disk.Set(key, entry); err != nil {
		return err
	}
	return h.Memory.Set(key, entry)
}

// Delete removes key from both tiers.
func (h *Hybrid) Delete(key string) {
	h.Memory.Delete(key)
	h.Disk.Delete(key)
}

// Clear empties both tiers.
func (h *Hybrid) Clear() {
	h.Memory.Clear()
	h.Disk.Clear()
}
