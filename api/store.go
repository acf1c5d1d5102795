package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TaskStore defines persistence operations for scan tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *ScanTask) error
	GetTask(ctx context.Context, id string) (*ScanTask, error)
	UpdateTask(ctx context.Context, task *ScanTask) error
	PushToQueue(ctx context.Context, taskID string) error
	// PopFromQueue waits up to timeout for a task ID and returns
	// ErrQueueEmpty when none arrived.
	PopFromQueue(ctx context.Context, timeout time.Duration) (string, error)
}

var (
	// ErrTaskNotFound indicates the requested task doesn't exist in the store.
	ErrTaskNotFound = errors.New("task not found")
	// ErrQueueEmpty indicates no task was queued within the pop timeout.
	ErrQueueEmpty = errors.New("queue empty")
)

const queueKey = "portscan:queue"

// RedisStore implements TaskStore using Redis hashes for tasks and a list
// as the work queue.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed task store. Task hashes expire
// ttl after their last update; zero keeps them forever.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) taskKey(id string) string {
	return fmt.Sprintf("portscan:task:%s", id)
}

// CreateTask persists a new scan task in Redis.
func (s *RedisStore) CreateTask(ctx context.Context, task *ScanTask) error {
	return s.save(ctx, task)
}

// GetTask retrieves a task by ID.
func (s *RedisStore) GetTask(ctx context.Context, id string) (*ScanTask, error) {
	res, err := s.client.HGetAll(ctx, s.taskKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	if len(res) == 0 {
		return nil, ErrTaskNotFound
	}
	return deserializeTask(res)
}

// UpdateTask updates an existing task in Redis.
func (s *RedisStore) UpdateTask(ctx context.Context, task *ScanTask) error {
	return s.save(ctx, task)
}

func (s *RedisStore) save(ctx context.Context, task *ScanTask) error {
	data, err := serializeTask(task)
	if err != nil {
		return err
	}
	key := s.taskKey(task.ID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// PushToQueue enqueues a task ID for workers to process.
func (s *RedisStore) PushToQueue(ctx context.Context, taskID string) error {
	return s.client.LPush(ctx, queueKey, taskID).Err()
}

// PopFromQueue blocks until a task ID is available or timeout elapses.
func (s *RedisStore) PopFromQueue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := s.client.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	if len(res) != 2 {
		return "", errors.New("unexpected response size from BRPOP")
	}
	return res[1], nil
}

func serializeTask(task *ScanTask) (map[string]interface{}, error) {
	var resultsData string
	if task.Results != nil {
		encoded, err := json.Marshal(task.Results)
		if err != nil {
			return nil, err
		}
		resultsData = string(encoded)
	}

	var unresolvedData string
	if len(task.Unresolved) > 0 {
		encoded, err := json.Marshal(task.Unresolved)
		if err != nil {
			return nil, err
		}
		unresolvedData = string(encoded)
	}

	return map[string]interface{}{
		"id":           task.ID,
		"status":       task.Status,
		"address":      task.Address,
		"port_start":   int(task.PortStart),
		"port_end":     int(task.PortEnd),
		"src_address":  task.SrcAddress,
		"mode":         task.Mode,
		"concurrency":  task.Concurrency,
		"timeout_ms":   task.TimeoutMS,
		"deadline_ms":  task.DeadlineMS,
		"results":      resultsData,
		"incomplete":   strconv.FormatBool(task.Incomplete),
		"unresolved":   unresolvedData,
		"created_at":   formatTime(&task.CreatedAt),
		"started_at":   formatTime(task.StartedAt),
		"completed_at": formatTime(task.CompletedAt),
		"elapsed_ms":   task.ElapsedMS,
		"error":        task.Error,
		"error_kind":   task.ErrorKind,
	}, nil
}

func deserializeTask(data map[string]string) (*ScanTask, error) {
	d := decoder{data: data}

	task := &ScanTask{
		ID:          data["id"],
		Status:      data["status"],
		Address:     data["address"],
		PortStart:   uint16(d.integer("port_start")),
		PortEnd:     uint16(d.integer("port_end")),
		SrcAddress:  data["src_address"],
		Mode:        data["mode"],
		Concurrency: d.integer("concurrency"),
		TimeoutMS:   d.integer("timeout_ms"),
		DeadlineMS:  d.integer("deadline_ms"),
		Incomplete:  data["incomplete"] == "true",
		StartedAt:   d.timestamp("started_at"),
		CompletedAt: d.timestamp("completed_at"),
		ElapsedMS:   int64(d.integer("elapsed_ms")),
		Error:       data["error"],
		ErrorKind:   data["error_kind"],
	}
	if created := d.timestamp("created_at"); created != nil {
		task.CreatedAt = *created
	}
	d.decodeJSON("results", &task.Results)
	d.decodeJSON("unresolved", &task.Unresolved)

	if d.err != nil {
		return nil, fmt.Errorf("decode task %s: %w", task.ID, d.err)
	}
	return task, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// decoder reads typed fields out of a task hash, keeping the first error.
type decoder struct {
	data map[string]string
	err  error
}

func (d *decoder) integer(field string) int {
	raw := d.data[field]
	if raw == "" || d.err != nil {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		d.err = fmt.Errorf("%s: %w", field, err)
	}
	return v
}

func (d *decoder) timestamp(field string) *time.Time {
	raw := d.data[field]
	if raw == "" || d.err != nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		d.err = fmt.Errorf("%s: %w", field, err)
		return nil
	}
	return &t
}

func (d *decoder) decodeJSON(field string, dst any) {
	raw := d.data[field]
	if raw == "" || d.err != nil {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		d.err = fmt.Errorf("%s: %w", field, err)
	}
}
