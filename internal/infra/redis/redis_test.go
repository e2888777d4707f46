//go:build !integration

package redis

import (
	"context"
	"errors"
	"path"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"content-studio/internal/cachesync"
	"content-studio/internal/domain/model"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// fakeClient is an in-memory RedisClient; Scan uses glob matching like SCAN MATCH.
type fakeClient struct {
	mu       sync.Mutex
	data     map[string]string
	counters map[string]int64
	ttl      map[string]time.Duration
}

var _ RedisClient = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, counters: map[string]int64{}, ttl: map[string]time.Duration{}}
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		return errors.New("unsupported value")
	}
	f.ttl[key] = exp
	return nil
}

func (f *fakeClient) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeClient) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeClient) Expire(_ context.Context, key string, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttl[key] = exp
	return nil
}

func (f *fakeClient) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeClient) Scan(_ context.Context, match string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.data {
		if ok, _ := path.Match(match, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeClient) Publish(context.Context, string, []byte) error { return nil }
func (f *fakeClient) Close() error                                 { return nil }

func (f *fakeClient) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.data))
	for k := range f.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestCacheStore(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	store := NewCacheStore(fc, "")

	if _, err := store.Get(ctx, "podcast-detail(pod_1)"); !errors.Is(err, cachesync.ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	for _, k := range []string{"podcast-detail(pod_1)", "podcast-list:u1", "podcast-list:*", "admin-job-stats"} {
		if err := store.Set(ctx, k, []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	_ = fc.Set(ctx, "lock:reaper", "token", time.Minute)

	got, err := store.Get(ctx, "podcast-detail(pod_1)")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get: %q %v", got, err)
	}

	l := zerolog.Nop()
	inv := cachesync.NewStoreInvalidator(store, &l)
	ev := model.Event{Kind: model.EventEntityChange, EntityType: model.EntityPodcast, EntityID: "pod_1", ChangeType: model.ChangeDelete}
	if err := inv.Invalidate(ctx, cachesync.Route(ev)); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	want := []string{"lock:reaper", "studio:cache:admin-job-stats"}
	if got := fc.keys(); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("remaining keys: got %v, want %v", got, want)
	}

	n, err := store.DelPrefix(ctx, cachesync.AdminPrefix)
	if err != nil || n != 1 {
		t.Errorf("DelPrefix admin: n=%d err=%v", n, err)
	}
}

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob("podcast-list:*"); got != `podcast-list:\*` {
		t.Errorf("got %q", got)
	}
	if got := escapeGlob("a[b]?"); got != `a\[b\]\?` {
		t.Errorf("got %q", got)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	rl := NewRateLimiter(fc)
	now := time.Date(2025, 1, 1, 10, 0, 15, 0, time.UTC)
	rl.now = func() time.Time { return now }
	key := UserActionKey("u1", "generate")
	bucket := key + ":" + strconv.FormatInt(now.Truncate(time.Minute).Unix(), 10)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Fatal("fourth request must be limited")
	}
	if got := fc.ttl[bucket]; got != 46*time.Second {
		t.Errorf("bucket should expire just after the window closes, ttl=%v", got)
	}

	// the next window starts a fresh budget
	now = now.Add(time.Minute)
	if ok, err := rl.Allow(ctx, key, 3, time.Minute); err != nil || !ok {
		t.Fatalf("new window: ok=%v err=%v", ok, err)
	}
}
