// Package apitest provides an in-memory backend speaking the desk REST contract
// for tests of the client layers.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"civicdesk/pkg/domain"
)

// Request is a recorded inbound call.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type collection struct {
	singular string
	rows     map[int64]map[string]any
}

type failure struct {
	status  int
	message string
}

// Server is an httptest server holding collections in memory.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	collections map[string]*collection
	nextID      int64
	failures    map[string][]failure
	delays      map[string][]time.Duration
	requests    []Request
}

// NewServer starts a server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		collections: make(map[string]*collection),
		failures:    make(map[string][]failure),
		delays:      make(map[string][]time.Duration),
	}
	s.Server = httptest.NewServer(s)
	t.Cleanup(s.Close)
	return s
}

// Register declares a collection and its singular response key.
func (s *Server) Register(name, singular string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &collection{singular: singular, rows: make(map[int64]map[string]any)}
	}
}

// Seed stores records, assigning IDs to those without one.
func (s *Server) Seed(t testing.TB, name string, records ...any) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		t.Fatalf("collection %s not registered", name)
	}
	for _, rec := range records {
		fields, err := domain.Fields(rec)
		if err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		id := idOf(fields)
		if id == 0 {
			id = s.allocateID()
			fields["ID"] = json.Number(strconv.FormatInt(id, 10))
		} else if id > s.nextID {
			s.nextID = id
		}
		c.rows[id] = fields
	}
}

// FailNext makes the next matching request answer with status and {"error": message}.
func (s *Server) FailNext(method, name string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + name
	s.failures[key] = append(s.failures[key], failure{status: status, message: message})
}

// DelayNext holds the next matching response for d before it is computed.
func (s *Server) DelayNext(method, name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + name
	s.delays[key] = append(s.delays[key], d)
}

// Requests returns the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests returns how many requests matched method and path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Rows returns the stored rows of a collection ordered by ID.
func (s *Server) Rows(name string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	return c.sorted()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.Trim(r.URL.Path, "/")
	segments := strings.Split(path, "/")
	name := segments[0]

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: "/" + path, Query: r.URL.RawQuery, Body: body})
	key := r.Method + " " + name
	var delay time.Duration
	if queue := s.delays[key]; len(queue) > 0 {
		delay, s.delays[key] = queue[0], queue[1:]
	}
	var fail *failure
	if queue := s.failures[key]; len(queue) > 0 {
		f := queue[0]
		fail, s.failures[key] = &f, queue[1:]
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if fail != nil {
		writeError(w, fail.status, fail.message)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown collection %s", name))
		return
	}

	switch {
	case r.Method == http.MethodGet && len(segments) == 1:
		s.handleGet(w, r, name, c)
	case r.Method == http.MethodPost && len(segments) == 1:
		s.handleCreate(w, body, c)
	case r.Method == http.MethodPatch && len(segments) == 2:
		s.handlePatch(w, segments[1], body, c)
	case r.Method == http.MethodDelete && len(segments) == 1:
		s.handleDelete(w, body, c)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, name string, c *collection) {
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		row, ok := c.rows[id]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", c.singular, id))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{c.singular: row})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{name: c.sorted()})
}

func (s *Server) handleCreate(w http.ResponseWriter, body []byte, c *collection) {
	fields, err := decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if _, hasID := fields["ID"]; hasID {
		writeError(w, http.StatusBadRequest, "ID is assigned by the server")
		return
	}
	id := s.allocateID()
	fields["ID"] = json.Number(strconv.FormatInt(id, 10))
	c.rows[id] = fields
	writeJSON(w, http.StatusCreated, map[string]any{c.singular: fields})
}

func (s *Server) handlePatch(w http.ResponseWriter, rawID string, body []byte, c *collection) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	row, ok := c.rows[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", c.singular, id))
		return
	}
	patch, err := decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	for k := range patch {
		if k == "ID" {
			writeError(w, http.StatusBadRequest, "ID is immutable")
			return
		}
		if _, known := row[k]; !known {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown field %s", k))
			return
		}
	}
	for k, v := range patch {
		row[k] = v
	}
	patch["ID"] = row["ID"]
	writeJSON(w, http.StatusOK, patch)
}

func (s *Server) handleDelete(w http.ResponseWriter, body []byte, c *collection) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.Unmarshal(body, &req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids required")
		return
	}
	removed := 0
	for _, id := range req.IDs {
		if _, ok := c.rows[id]; ok {
			delete(c.rows, id)
			removed++
		}
	}
	if removed == 0 {
		writeError(w, http.StatusNotFound, "no matching records")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) allocateID() int64 {
	s.nextID++
	return s.nextID
}

func (c *collection) sorted() []map[string]any {
	ids := make([]int64, 0, len(c.rows))
	for id := range c.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		row := make(map[string]any, len(c.rows[id]))
		for k, v := range c.rows[id] {
			row[k] = v
		}
		out = append(out, row)
	}
	return out
}

func idOf(fields map[string]any) int64 {
	if n, ok := fields["ID"].(json.Number); ok {
		id, _ := n.Int64()
		return id
	}
	return 0
}

func decode(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("empty payload")
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
