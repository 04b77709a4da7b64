package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"captionjob/internal/config"
	"captionjob/internal/jobs"
)

type storeFactory func(t *testing.T) jobs.Store

func storeBackends(t *testing.T) map[string]storeFactory {
	t.Helper()
	backends := map[string]storeFactory{
		"file": func(t *testing.T) jobs.Store {
			store, err := jobs.OpenFileStore(filepath.Join(t.TempDir(), "jobs"))
			if err != nil {
				t.Fatalf("OpenFileStore: %v", err)
			}
			return store
		},
		"sqlite": func(t *testing.T) jobs.Store {
			store, err := jobs.OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "jobs.db"))
			if err != nil {
				t.Fatalf("OpenSQLiteStore: %v", err)
			}
			return store
		},
	}
	if url := os.Getenv("CAPTIONJOB_TEST_REDIS_URL"); url != "" {
		backends["redis"] = func(t *testing.T) jobs.Store {
			prefix := "captionjob_test_" + strings.ReplaceAll(t.Name(), "/", "_")
			store, err := jobs.OpenRedisStore(context.Background(), url, prefix)
			if err != nil {
				t.Fatalf("OpenRedisStore: %v", err)
			}
			return store
		}
	}
	return backends
}

func TestStoreConformance(t *testing.T) {
	for name, open := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			t.Cleanup(func() { store.Close() })
			ctx := context.Background()

			missing, err := store.Load(ctx, "20000101T000000Z-000000000000")
			if err != nil || missing != nil {
				t.Fatalf("expected (nil, nil) for unknown id, got %v, %v", missing, err)
			}

			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			first := jobs.New([]string{"https://youtu.be/a"}, "jar", map[string]string{"Origin": "o"}, base)
			second := jobs.New([]string{"https://youtu.be/b"}, "", nil, base.Add(time.Hour))
			for _, job := range []*jobs.Job{first, second} {
				if err := store.Create(ctx, job); err != nil {
					t.Fatalf("Create %s: %v", job.ID, err)
				}
			}
			if err := store.Create(ctx, first); !errors.Is(err, jobs.ErrExists) {
				t.Fatalf("expected ErrExists on duplicate create, got %v", err)
			}

			loaded, err := store.Load(ctx, first.ID)
			if err != nil || loaded == nil {
				t.Fatalf("Load %s: %v", first.ID, err)
			}
			if loaded.Status != jobs.StatusQueued || loaded.CookieSecret != "jar" || loaded.Headers["Origin"] != "o" {
				t.Fatalf("unexpected loaded job: %+v", loaded)
			}

			text := "hello"
			if err := loaded.Complete(jobs.StatusCompleted, []jobs.Result{{URL: "https://youtu.be/a", Title: "A", Filename: "A.txt", Text: &text}}, "", base.Add(2*time.Hour)); err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if err := store.Save(ctx, loaded); err != nil {
				t.Fatalf("Save: %v", err)
			}
			reloaded, err := store.Load(ctx, first.ID)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if reloaded.Status != jobs.StatusCompleted || len(reloaded.Results) != 1 || *reloaded.Results[0].Text != "hello" || reloaded.CookieSecret != "" {
				t.Fatalf("unexpected reloaded job: %+v", reloaded)
			}

			listed, err := store.List(ctx, 0)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(listed) != 2 || listed[0].ID != second.ID || listed[1].ID != first.ID {
				t.Fatalf("expected newest first, got %v", ids(listed))
			}
			limited, err := store.List(ctx, 1)
			if err != nil || len(limited) != 1 || limited[0].ID != second.ID {
				t.Fatalf("unexpected limited list: %v, %v", ids(limited), err)
			}

			bad := jobs.New(nil, "", nil, base)
			bad.ID = "../escape"
			if err := store.Save(ctx, bad); !errors.Is(err, jobs.ErrInvalidID) {
				t.Fatalf("expected ErrInvalidID, got %v", err)
			}
			if job, err := store.Load(ctx, bad.ID); job != nil || !errors.Is(err, jobs.ErrInvalidID) {
				t.Fatalf("Load(%q) = %v, %v; want ErrInvalidID", bad.ID, job, err)
			}
		})
	}
}

func TestFileStoreWritesOneDocumentPerJob(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "jobs")
	store, err := jobs.OpenFileStore(dir)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	ctx := context.Background()
	job := jobs.New([]string{"u"}, "secret-jar", nil, time.Now())
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := job.Complete(jobs.StatusFailed, nil, "boom", time.Now()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := store.Save(ctx, job); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != job.ID+".json" {
		t.Fatalf("expected a single record file and no temp leftovers, got %v", entries)
	}

	data, err := os.ReadFile(filepath.Join(dir, job.ID+".json"))
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if _, ok := raw["cookie_secret"]; ok {
		t.Fatalf("expected cookie_secret key absent after completion: %s", data)
	}
	if raw["error"] != "boom" || raw["status"] != "failed" {
		t.Fatalf("unexpected record: %s", data)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Dir = filepath.Join(t.TempDir(), "jobs")
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "jobs.db")

	store, err := jobs.Open(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := store.(*jobs.FileStore); !ok {
		t.Fatalf("expected file store, got %T", store)
	}
	store.Close()

	cfg.Store.Backend = config.StoreBackendSQLite
	store, err = jobs.Open(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	if _, ok := store.(*jobs.SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	store.Close()

	cfg.Store.Backend = "etcd"
	if _, err := jobs.Open(context.Background(), &cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func ids(list []*jobs.Job) []string {
	out := make([]string, len(list))
	for i, job := range list {
		out[i] = job.ID
	}
	return out
}
