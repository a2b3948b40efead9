package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/tbourn/character-chat-backend/internal/domain"
	"github.com/tbourn/character-chat-backend/internal/repo"
)

// memStore is an in-memory ChatRepo with injectable failures.
type memStore struct {
	mu         sync.Mutex
	characters map[string]domain.Character
	chats      map[domain.PairKey][]domain.Message
	replays    map[string]domain.Message
	pending    map[string]bool
	nextID     uint64

	findErr     error
	insertErr   error
	sampleErr   error
	appendErr   error
	countErr    error
	listErr     error
	replayErr   error
	claimErr    error
	completeErr error
	appendHits  int
	claimHits   int
	releaseHits int
}

func newMemStore() *memStore {
	return &memStore{
		characters: map[string]domain.Character{},
		chats:      map[domain.PairKey][]domain.Message{},
		replays:    map[string]domain.Message{},
		pending:    map[string]bool{},
	}
}

func (m *memStore) seed(names ...string) {
	for _, n := range names {
		m.characters[n] = domain.Character{ID: "id-" + n, Name: n, Personality: "seeded personality", Hobbies: []string{"x"}}
	}
}

func (m *memStore) FindCharacter(_ context.Context, name string) (*domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.characters[name]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) InsertCharacter(_ context.Context, c *domain.Character) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return "", m.insertErr
	}
	if _, ok := m.characters[c.Name]; ok {
		return "", repo.ErrDuplicate
	}
	c.ID = "id-" + c.Name
	m.characters[c.Name] = *c
	return c.ID, nil
}

func (m *memStore) SampleCharacter(context.Context) (*domain.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sampleErr != nil {
		return nil, m.sampleErr
	}
	for _, c := range m.characters {
		return &c, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memStore) AppendMessage(_ context.Context, key domain.PairKey, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendHits++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.nextID++
	msg.ID = m.nextID
	m.chats[key] = append(m.chats[key], *msg)
	return nil
}

func (m *memStore) CountMessages(_ context.Context, key domain.PairKey) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.chats[key])), nil
}

func (m *memStore) ListMessagesPage(_ context.Context, key domain.PairKey, offset, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	all := m.chats[key]
	if offset >= len(all) {
		return []domain.Message{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]domain.Message(nil), all[offset:end]...), nil
}

func (m *memStore) MessagesStats(_ context.Context, key domain.PairKey) (int64, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, nil, m.countErr
	}
	all := m.chats[key]
	if len(all) == 0 {
		return 0, nil, nil
	}
	ts := all[len(all)-1].Timestamp
	return int64(len(all)), &ts, nil
}

func (m *memStore) GetReplay(_ context.Context, key domain.PairKey, idemKey string, _ time.Time) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replayErr != nil {
		return nil, m.replayErr
	}
	k := string(key) + "/" + idemKey
	if m.pending[k] {
		return nil, repo.ErrReplayPending
	}
	msg, ok := m.replays[k]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &msg, nil
}

func (m *memStore) ClaimReplay(_ context.Context, key domain.PairKey, idemKey string, _ time.Time, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimHits++
	if m.claimErr != nil {
		return m.claimErr
	}
	k := string(key) + "/" + idemKey
	if _, ok := m.replays[k]; ok || m.pending[k] {
		return repo.ErrDuplicate
	}
	m.pending[k] = true
	return nil
}

func (m *memStore) CompleteReplay(_ context.Context, key domain.PairKey, idemKey string, msg *domain.Message, _ time.Time, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	k := string(key) + "/" + idemKey
	if !m.pending[k] {
		return repo.ErrNotFound
	}
	delete(m.pending, k)
	m.replays[k] = *msg
	return nil
}

func (m *memStore) ReleaseReplay(_ context.Context, key domain.PairKey, idemKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseHits++
	delete(m.pending, string(key)+"/"+idemKey)
	return nil
}

// countingGen records calls and returns a numbered reply.
type countingGen struct {
	calls int
	err   error
	last  struct {
		c1, c2           domain.Character
		conversation, fb string
	}
}

func (g *countingGen) Generate(_ context.Context, c1, c2 domain.Character, conversation, feedback string) (string, error) {
	g.calls++
	g.last.c1, g.last.c2, g.last.conversation, g.last.fb = c1, c2, conversation, feedback
	if g.err != nil {
		return "", g.err
	}
	return "reply " + strconv.Itoa(g.calls), nil
}
