// Package memory keeps media blobs in process memory for development.
package memory

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"Curbside/internal/core/media"
)

// Gate decides whether a stored blob may be served right now
type Gate interface {
	IsPublicObject(ctx context.Context, key string) (bool, error)
}

// Object is one stored blob
type Object struct {
	ContentType string
	Data        []byte
}

// ObjectStore implements media.ObjectStore. PresignGet returns links under
// baseURL signed with a per-process key. ServeHTTP also asks the Gate on
// every request, so a link stops working as soon as its asset goes private.
type ObjectStore struct {
	objects map[string]Object
	gate    Gate
	baseURL *url.URL
	key     []byte
	mu      sync.RWMutex
}

var _ media.ObjectStore = (*ObjectStore)(nil)

// NewObjectStore creates an empty store serving links under baseURL
func NewObjectStore(baseURL string) (*ObjectStore, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid object base url: %w", err)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return &ObjectStore{objects: make(map[string]Object), baseURL: u, key: key}, nil
}

// ServeOnly sets the gate consulted by ServeHTTP. Without one nothing is
// served.
func (s *ObjectStore) ServeOnly(gate Gate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = gate
}

func (s *ObjectStore) sign(key, expires string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(key + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *ObjectStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, size+1))
	if err != nil {
		return fmt.Errorf("failed to read object %s: %w", key, err)
	}
	if n != size {
		return fmt.Errorf("object %s: expected %d bytes, read %d", key, size, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{ContentType: contentType, Data: buf.Bytes()}
	return nil
}

func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *ObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (*url.URL, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object %s does not exist", key)
	}

	expires := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	u := s.baseURL.JoinPath(key)
	q := u.Query()
	q.Set("expires", expires)
	q.Set("signature", s.sign(key, expires))
	u.RawQuery = q.Encode()
	return u, nil
}

// Get returns the stored blob
func (s *ObjectStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored blobs
func (s *ObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ServeHTTP serves a blob for a validly signed, unexpired link whose asset
// the gate still reports as public. Every refusal after the signature check
// is a plain 404.
func (s *ObjectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, s.baseURL.Path), "/")
	expires := r.URL.Query().Get("expires")
	signature := r.URL.Query().Get("signature")
	if !hmac.Equal([]byte(signature), []byte(s.sign(key, expires))) {
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}
	if exp, err := strconv.ParseInt(expires, 10, 64); err != nil || time.Now().Unix() > exp {
		http.Error(w, "link expired", http.StatusForbidden)
		return
	}

	s.mu.RLock()
	gate := s.gate
	s.mu.RUnlock()
	if gate == nil {
		http.NotFound(w, r)
		return
	}
	public, err := gate.IsPublicObject(r.Context(), key)
	if err != nil {
		log.Printf("[OBJECTS] Visibility check failed for %s: %v", key, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !public {
		http.NotFound(w, r)
		return
	}

	obj, ok := s.Get(key)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(obj.Data)
}
