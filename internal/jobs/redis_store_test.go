package jobs_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"captionjob/internal/jobs"
)

// txRecorder answers pipelined commands in-process and records each
// transaction it sees, so the client never dials a server.
type txRecorder struct {
	batches   [][]string
	setNXVal  bool
	failBatch error
}

func (r *txRecorder) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("unexpected dial")
	}
}

func (r *txRecorder) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		r.batches = append(r.batches, []string{strings.ToLower(cmd.Name())})
		return nil
	}
}

func (r *txRecorder) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, strings.ToLower(cmd.Name()))
			if r.failBatch != nil {
				cmd.SetErr(r.failBatch)
				continue
			}
			if setNX, ok := cmd.(*redis.BoolCmd); ok {
				setNX.SetVal(r.setNXVal)
			}
		}
		r.batches = append(r.batches, names)
		return r.failBatch
	}
}

func newRecordedRedisStore(t *testing.T, recorder *txRecorder) *jobs.RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(recorder)
	t.Cleanup(func() { _ = client.Close() })
	return jobs.NewRedisStore(client, "caption_job")
}

func TestRedisStoreCreateIndexesInOneTransaction(t *testing.T) {
	recorder := &txRecorder{setNXVal: true}
	store := newRecordedRedisStore(t, recorder)
	job := jobs.New([]string{"u"}, "", nil, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(recorder.batches) != 1 {
		t.Fatalf("expected one round trip, got %v", recorder.batches)
	}
	got := strings.Join(recorder.batches[0], " ")
	if got != "multi setnx zadd exec" {
		t.Fatalf("transaction = %q", got)
	}
}

func TestRedisStoreCreateReportsDuplicates(t *testing.T) {
	store := newRecordedRedisStore(t, &txRecorder{setNXVal: false})
	job := jobs.New([]string{"u"}, "", nil, time.Now())

	if err := store.Create(context.Background(), job); !errors.Is(err, jobs.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestRedisStoreCreateFailsWhenTransactionFails(t *testing.T) {
	boom := errors.New("READONLY You can't write against a read only replica")
	store := newRecordedRedisStore(t, &txRecorder{failBatch: boom})
	job := jobs.New([]string{"u"}, "", nil, time.Now())

	err := store.Create(context.Background(), job)
	if err == nil || errors.Is(err, jobs.ErrExists) || !strings.Contains(err.Error(), "READONLY") {
		t.Fatalf("expected transaction error, got %v", err)
	}
}
