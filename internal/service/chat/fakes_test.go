package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/internal/providers/llm"
)

type memStore struct {
	mu      sync.Mutex
	convs   map[string][]core.Message
	nextID  int
	created []string

	existsErr error
	recentErr error
	createErr error
	appendErr error
	// appendMissing makes Append report an unknown conversation
	appendMissing bool
	// recentOverflow returns every message regardless of limit
	recentOverflow bool
	recentCalls    int
	lastLimit      int
}

func newMemStore() *memStore {
	return &memStore{convs: map[string][]core.Message{}}
}

func (m *memStore) seed(id string, msgs ...core.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[id] = append([]core.Message{}, msgs...)
}

func (m *memStore) messages(id string) []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Message{}, m.convs[id]...)
}

func (m *memStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.convs[id]
	return ok, nil
}

func (m *memStore) RecentMessages(_ context.Context, id string, limit int) ([]core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recentCalls++
	m.lastLimit = limit
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	msgs := m.convs[id]
	if !m.recentOverflow && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]core.Message{}, msgs...), nil
}

func (m *memStore) Append(_ context.Context, id string, msg core.Message) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return false, m.appendErr
	}
	if m.appendMissing {
		return false, nil
	}
	if _, ok := m.convs[id]; !ok {
		return false, nil
	}
	m.convs[id] = append(m.convs[id], msg)
	return true, nil
}

func (m *memStore) Create(_ context.Context, title *string) (*core.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("conv-%d", m.nextID)
	m.convs[id] = []core.Message{}
	m.created = append(m.created, id)
	return &core.Conversation{ID: id, Title: title}, nil
}

type fakeInferer struct {
	result  llm.Result
	panic   bool
	prompts []string
}

func (f *fakeInferer) Run(_ context.Context, prompt string) llm.Result {
	f.prompts = append(f.prompts, prompt)
	if f.panic {
		panic("drum memory fault")
	}
	return f.result
}

func okResult(text string) llm.Result {
	return llm.Result{Text: text, Outcome: llm.OutcomeOK}
}
