package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// memoryStore is an in-process TaskStore for tests. Tasks are copied on the
// way in and out so callers cannot alias stored state.
type memoryStore struct {
	mu    sync.Mutex
	tasks map[string][]byte
	queue chan string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		tasks: make(map[string][]byte),
		queue: make(chan string, 64),
	}
}

func (m *memoryStore) CreateTask(_ context.Context, task *ScanTask) error {
	return m.put(task)
}

func (m *memoryStore) UpdateTask(_ context.Context, task *ScanTask) error {
	return m.put(task)
}

func (m *memoryStore) put(task *ScanTask) error {
	b, err := json.Marshal(task)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = b
	return nil
}

func (m *memoryStore) GetTask(_ context.Context, id string) (*ScanTask, error) {
	m.mu.Lock()
	b, ok := m.tasks[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrTaskNotFound
	}
	var task ScanTask
	if err := json.Unmarshal(b, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (m *memoryStore) PushToQueue(_ context.Context, taskID string) error {
	m.queue <- taskID
	return nil
}

func (m *memoryStore) PopFromQueue(ctx context.Context, timeout time.Duration) (string, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case id := <-m.queue:
		return id, nil
	case <-t.C:
		return "", ErrQueueEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
