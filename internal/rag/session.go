package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds one ingested document and its chunk index.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Index     *Index

	embedder  Embedder
	chunkSize int
}

// NewSession creates an empty session with a fresh ID. A nil embedder means
// HashEmbedder; chunkSize <= 0 means DefaultChunkSize.
func NewSession(embedder Embedder, chunkSize int) *Session {
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Index:     NewIndex(),
		embedder:  embedder,
		chunkSize: chunkSize,
	}
}

// Ingest chunks text, embeds every chunk and adds it to the index. It
// returns the number of chunks added.
func (s *Session) Ingest(ctx context.Context, name, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyDocument
	}
	s.Name = name
	chunks := ChunkText(text, s.chunkSize)
	vecs, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", name, err)
	}
	for i, c := range chunks {
		s.Index.Add(c, vecs[i])
	}
	return len(chunks), nil
}

// Passages returns the k chunks that best match question, best first.
// k <= 1 returns the single best chunk.
func (s *Session) Passages(ctx context.Context, question string, k int) ([]Match, error) {
	vecs, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if k > 1 {
		return s.Index.TopK(vecs[0], k), nil
	}
	m, ok := s.Index.BestMatch(vecs[0])
	if !ok {
		return nil, nil
	}
	return []Match{m}, nil
}

// SessionStore keeps sessions in memory keyed by ID.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

func (st *SessionStore) Put(s *Session) {
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
}

func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// List returns sessions oldest first.
func (st *SessionStore) List() []*Session {
	st.mu.RLock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	st.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
