// Package diskstore implements a disk-backed cache.Storage, grounded on the
// teacher's diskcache and leveldbcache packages: diskv holds the serialized
// entry blobs (diskcache.go's WriteStream/ReadStream/Erase shape), and a
// goleveldb instance sits alongside it as a sidecar metadata index so a miss
// never pays the cost of opening a blob file that doesn't exist.
package diskstore

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/peterbourgon/diskv"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/cache"
)

// DefaultCacheSizeMax is diskv's in-process read-back cache bound, carried
// over from the teacher's diskcache.New default.
const DefaultCacheSizeMax = 100 * 1024 * 1024

// Store is a disk-backed cache.Storage.
type Store struct {
	mu  sync.Mutex
	blobs *diskv.Diskv
	index *leveldb.DB
}

// New opens (or creates) a disk-backed store rooted at basePath, with its
// sidecar leveldb index at indexPath.
func New(basePath, indexPath string) (*Store, error) {
	idx, err := leveldb.OpenFile(indexPath, nil)
	if err != nil {
		return nil, err
	}
	blobs := diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: DefaultCacheSizeMax,
	})
	return &Store{blobs: blobs, index: idx}, nil
}

// Close releases the sidecar index's file handles.
func (s *Store) Close() error {
	return s.index.Close()
}

func filename(key string) string {
	h := md5.New()
	io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the entry stored under key, if any.
func (s *Store) Get(key string) (cache.Entry, bool) {
	fn := filename(key)

	ok, err := s.index.Has([]byte(fn), nil)
	if err != nil || !ok {
		return cache.Entry{}, false
	}

	stream, err := s.blobs.ReadStream(fn, true)
	if err != nil {
		return cache.Entry{}, false
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return cache.Entry{}, false
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return cache.Entry{}, false
	}
	return entry, true
}

// Set stores entry under key. An entry with ShouldNotStore is never
// persisted (invariant I3).
func (s *Store) Set(key string, entry cache.Entry) error {
	if entry.ShouldNotStore() {
		return nil
	}

	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	fn := filename(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.WriteStream(fn, io.NopCloser(bytes.NewReader(data)), true); err != nil {
		return err
	}
	return s.index.Put([]byte(fn), []byte{1}, nil)
}

// Delete removes key, if present.
func (s *Store) Delete(key string) {
	fn := filename(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs.Erase(fn)
	s.index.Delete([]byte(fn), nil)
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs.EraseAll()

	iter := s.index.NewIterator(nil, nil)
	for iter.Next() {
		s.index.Delete(iter.Key(), nil)
	}
	iter.Release()
}

// wireEntry is the on-disk representation of a cache.Entry. flux.Header's
// fields are unexported (by design — see header.go), so it is flattened to
// ordered name/value pairs here rather than marshalled directly.
type wireEntry struct {
	Status       int
	Header       []headerPair
	Body         []byte
	ReqMethod    string
	ReqURL       string
	CreatedAt    time.Time
	ETag         string
	LastModified string
	Expiration   time.Time
	Directives   cache.Directives
	Varied       map[string]string
}

type headerPair struct {
	Name  string
	Value string
}

func headerToPairs(h flux.Header) []headerPair {
	var out []headerPair
	h.Each(func(name, value string) {
		out = append(out, headerPair{Name: name, Value: value})
	})
	return out
}

func pairsToHeader(pairs []headerPair) flux.Header {
	var h flux.Header
	for _, p := range pairs {
		h = h.Add(p.Name, p.Value)
	}
	return h
}

func encodeEntry(e cache.Entry) ([]byte, error) {
	w := wireEntry{
		Status:       e.Response.Status,
		Header:       headerToPairs(e.Response.Header),
		Body:         e.Response.Body,
		ReqMethod:    string(e.Response.Request.Method()),
		ReqURL:       e.Response.Request.URL().String(),
		CreatedAt:    e.CreatedAt,
		ETag:         e.ETag,
		LastModified: e.LastModified,
		Expiration:   e.Expiration,
		Directives:   e.Directives,
		Varied:       e.Varied,
	}
	return json.Marshal(w)
}

func decodeEntry(data []byte) (cache.Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return cache.Entry{}, err
	}

	req, err := flux.NewRequest(flux.Method(w.ReqMethod), w.ReqURL)
	if err != nil {
		req = flux.Request{}
	}
	resp := flux.NewResponse(req, w.Status, pairsToHeader(w.Header), w.Body)

	return cache.Entry{
		Response:     resp,
		CreatedAt:    w.CreatedAt,
		ETag:         w.ETag,
		LastModified: w.LastModified,
		Expiration:   w.Expiration,
		Directives:   w.Directives,
		Varied:       w.Varied,
	}, nil
}
