package unread

import (
	"context"
	"sync"
	"testing"

	"team_chat_server/internal/config"
	"team_chat_server/internal/dao/database"
	"team_chat_server/internal/dao/database/repository"
	cache "team_chat_server/internal/dao/redis"
	"team_chat_server/internal/model"
	"team_chat_server/internal/realtime/event"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type notification struct {
	UserID uuid.UUID
	Counts event.UnreadCounts
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notification
}

func (r *recordingNotifier) UnreadCountsUpdated(_ context.Context, userID uuid.UUID, counts event.UnreadCounts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, notification{UserID: userID, Counts: counts})
}

func (r *recordingNotifier) forUser(userID uuid.UUID) []event.UnreadCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.UnreadCounts
	for _, n := range r.notes {
		if n.UserID == userID {
			out = append(out, n.Counts)
		}
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	r.notes = nil
	r.mu.Unlock()
}

// testStore 可整体清空的计数存储，用于模拟缓存冷启动
type testStore interface {
	cache.CounterStore
	Flush()
	Close() error
}

type memoryStore struct{ *cache.MemoryStore }

func (memoryStore) Close() error { return nil }

// miniStore RedisCache 跑在进程内的 miniredis 上
type miniStore struct {
	*cache.RedisCache
	mr *miniredis.Miniredis
}

func (s *miniStore) Flush() { s.mr.FlushAll() }

func (s *miniStore) Close() error {
	err := s.RedisCache.Close()
	s.mr.Close()
	return err
}

type backend string

const (
	backendMemory backend = "memory"
	backendRedis  backend = "redis"
)

var backends = []backend{backendMemory, backendRedis}

func openStore(b backend) (testStore, *cache.MemoryStore, error) {
	if b == backendRedis {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		rc := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 1, 16)
		return &miniStore{RedisCache: rc, mr: mr}, nil, nil
	}
	mem := cache.NewMemoryStore()
	return memoryStore{mem}, mem, nil
}

type fixture struct {
	db       *gorm.DB
	repos    *repository.Repositories
	store    testStore
	mem      *cache.MemoryStore // 仅内存后端，用于注入故障
	notifier *recordingNotifier
	tracker  *Tracker
	team     uuid.UUID
	channel  *model.Channel
	a, b     uuid.UUID
}

// newEnv A、B 都是同一个公开频道的成员
func newEnv() (*fixture, error) {
	return newEnvOn(backendMemory)
}

func newEnvOn(b backend) (*fixture, error) {
	store, mem, err := openStore(b)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(&config.DatabaseConfig{Driver: database.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = store.Close()
		return nil, err
	}
	f := &fixture{
		db:       db,
		repos:    repository.NewRepositories(db),
		store:    store,
		mem:      mem,
		notifier: &recordingNotifier{},
		team:     uuid.New(),
		a:        uuid.New(),
		b:        uuid.New(),
	}
	f.tracker = NewTracker(f.repos, f.store, f.notifier, nil)
	f.channel, err = f.addChannel("town-square")
	if err != nil {
		f.close()
		return nil, err
	}
	return f, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f, err := newEnv()
	require.NoError(t, err)
	t.Cleanup(f.close)
	return f
}

func (f *fixture) close() {
	_ = f.store.Close()
	if sqlDB, err := f.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (f *fixture) addChannel(name string) (*model.Channel, error) {
	ctx := context.Background()
	ch := &model.Channel{TeamID: f.team, Name: name, DisplayName: name, Type: model.ChannelPublic, CreatorID: f.a}
	if err := f.repos.Channel.Create(ctx, ch); err != nil {
		return nil, err
	}
	for _, u := range []uuid.UUID{f.a, f.b} {
		if _, err := f.repos.ChannelMember.Add(ctx, &model.ChannelMember{ChannelID: ch.ID, UserID: u}); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

// insertPost 只落库，不通知 Tracker
func (f *fixture) insertPost(ch *model.Channel, author uuid.UUID) (*model.Post, error) {
	ctx := context.Background()
	var p *model.Post
	err := f.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		seq, err := tx.Channel.NextSeq(ctx, ch.ID)
		if err != nil {
			return err
		}
		p = &model.Post{ChannelID: ch.ID, UserID: author, Message: "hello", Seq: seq}
		return tx.Post.Create(ctx, p)
	})
	return p, err
}

func (f *fixture) createPost(ch *model.Channel, author uuid.UUID) (*model.Post, error) {
	p, err := f.insertPost(ch, author)
	if err != nil {
		return nil, err
	}
	return p, f.tracker.OnPostCreated(context.Background(), ch, author, p.Seq)
}

func (f *fixture) mustPost(t *testing.T, ch *model.Channel, author uuid.UUID) *model.Post {
	t.Helper()
	p, err := f.createPost(ch, author)
	require.NoError(t, err)
	return p
}

// cached 键不存在时为 0
func (f *fixture) cached(key string) (int64, bool) {
	v, found, _ := f.store.GetInt(context.Background(), key)
	return v, found
}
