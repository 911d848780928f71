package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/repository"
	"github.com/edukit/paperflow-backend/internal/session"
)

type fakeSnapshotCache struct {
	data map[string][]byte
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{data: make(map[string][]byte)}
}

func (f *fakeSnapshotCache) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (f *fakeSnapshotCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = v
	case string:
		f.data[key] = []byte(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeSnapshotCache) RPush(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	return redis.NewIntResult(int64(len(values)), nil)
}

type fakeSnapshotArchive struct {
	raw   []byte
	err   error
	calls int
}

func (f *fakeSnapshotArchive) LoadSnapshot(_ context.Context, _ uuid.UUID, _ int) ([]byte, error) {
	f.calls++
	return f.raw, f.err
}

func TestRedisStoreLoad_FallsBackToDurableSnapshot(t *testing.T) {
	started := time.Now().UTC().Truncate(time.Second)
	raw, err := json.Marshal(session.Snapshot{
		ExamStartedAt:       &started,
		TotalElapsedSeconds: 42,
		Items:               map[string]session.ItemSnapshot{},
	})
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	cache := newFakeSnapshotCache()
	archive := &fakeSnapshotArchive{raw: raw}
	store := &redisStore{rdb: cache, archive: archive, examID: uuid.New(), studentID: 7}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.TotalElapsedSeconds != 42 {
		t.Fatalf("got %+v, want the durable snapshot", got)
	}
	if got.ExamStartedAt == nil || !got.ExamStartedAt.Equal(started) {
		t.Errorf("exam start %v, want %v", got.ExamStartedAt, started)
	}

	// A recovered snapshot re-primes the live key so subsequent saves
	// and loads run against Redis again.
	key := config.CacheKey.SessionSnapshotKey(store.examID.String(), store.studentID)
	if _, ok := cache.data[key]; !ok {
		t.Error("live key was not re-primed from the durable snapshot")
	}
}

func TestRedisStoreLoad_PrefersLiveCache(t *testing.T) {
	cache := newFakeSnapshotCache()
	archive := &fakeSnapshotArchive{raw: []byte(`{"total_elapsed_seconds":1,"items":{}}`)}
	store := &redisStore{rdb: cache, archive: archive, examID: uuid.New(), studentID: 7}

	key := config.CacheKey.SessionSnapshotKey(store.examID.String(), store.studentID)
	cache.data[key] = []byte(`{"total_elapsed_seconds":99,"items":{}}`)

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TotalElapsedSeconds != 99 {
		t.Errorf("elapsed %v, want the cached value 99", got.TotalElapsedSeconds)
	}
	if archive.calls != 0 {
		t.Error("durable table consulted despite a live cache hit")
	}
}

func TestRedisStoreLoad_NoSnapshotAnywhere(t *testing.T) {
	store := &redisStore{
		rdb:       newFakeSnapshotCache(),
		archive:   &fakeSnapshotArchive{},
		examID:    uuid.New(),
		studentID: 7,
	}

	got, err := store.Load(context.Background())
	if err != nil || got != nil {
		t.Fatalf("got (%+v, %v), want (nil, nil) for a fresh session", got, err)
	}
}

type fakeReportSource struct {
	row *repository.ReportRow
	err error
}

func (f *fakeReportSource) GetByExamAndStudent(_ context.Context, _ uuid.UUID, _ int) (*repository.ReportRow, error) {
	return f.row, f.err
}

func TestReport_ServesStoredPayload(t *testing.T) {
	payload := []byte(`{"correct_rate":0.5}`)
	svc := &SessionService{reportRepo: &fakeReportSource{row: &repository.ReportRow{Payload: payload}}}

	got, err := svc.Report(context.Background(), uuid.New(), 7)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload %s, want the stored report verbatim", got)
	}
}

func TestReport_NotReadyBeforeWorkerPersists(t *testing.T) {
	svc := &SessionService{reportRepo: &fakeReportSource{}}

	if _, err := svc.Report(context.Background(), uuid.New(), 7); !errors.Is(err, ErrReportNotReady) {
		t.Fatalf("err = %v, want ErrReportNotReady", err)
	}
}
