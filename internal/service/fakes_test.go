package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/specification"
	"ai-tutor-be/internal/repository/unitofwork"

	"github.com/redis/go-redis/v9"
)

type fakeDB struct {
	mu        sync.Mutex
	contexts  map[string]entity.LearningContext
	logs      []*entity.ModeSwitchLog
	specs     []specification.Specification
	findCalls int
	failFind  error
	failWrite error
	// afterFind runs once, after the next read has returned its row
	afterFind func()
}

func newFakeDB() *fakeDB {
	return &fakeDB{contexts: map[string]entity.LearningContext{}}
}

func (db *fakeDB) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{db: db}
}

func (db *fakeDB) logCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.logs)
}

type fakeUnitOfWork struct {
	db *fakeDB
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *fakeUnitOfWork) Commit() error                   { return nil }
func (u *fakeUnitOfWork) Rollback() error                 { return nil }

func (u *fakeUnitOfWork) LearningContextRepository() contract.LearningContextRepository {
	return &fakeLearningContextRepo{db: u.db}
}

func (u *fakeUnitOfWork) ModeSwitchLogRepository() contract.ModeSwitchLogRepository {
	return &fakeModeSwitchLogRepo{db: u.db}
}

type fakeLearningContextRepo struct {
	db *fakeDB
}

func (r *fakeLearningContextRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningContext, error) {
	lc, hook, err := r.find(specs...)
	if hook != nil {
		hook()
	}
	return lc, err
}

func (r *fakeLearningContextRepo) find(specs ...specification.Specification) (*entity.LearningContext, func(), error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.findCalls++
	hook := r.db.afterFind
	r.db.afterFind = nil
	if r.db.failFind != nil {
		return nil, hook, r.db.failFind
	}
	for _, spec := range specs {
		if s, ok := spec.(specification.BySessionID); ok {
			if lc, found := r.db.contexts[s.SessionID]; found {
				return &lc, hook, nil
			}
		}
	}
	return nil, hook, nil
}

func (r *fakeLearningContextRepo) Upsert(ctx context.Context, lc *entity.LearningContext) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWrite != nil {
		return r.db.failWrite
	}
	r.db.contexts[lc.SessionId] = *lc
	return nil
}

func (r *fakeLearningContextRepo) Delete(ctx context.Context, sessionId string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.contexts, sessionId)
	return nil
}

type fakeModeSwitchLogRepo struct {
	db *fakeDB
}

func (r *fakeModeSwitchLogRepo) Create(ctx context.Context, log *entity.ModeSwitchLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failWrite != nil {
		return r.db.failWrite
	}
	cp := *log
	r.db.logs = append(r.db.logs, &cp)
	return nil
}

func (r *fakeModeSwitchLogRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ModeSwitchLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.specs = append(r.db.specs, specs...)
	return r.db.logs, nil
}

func (r *fakeModeSwitchLogRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.logs)), nil
}

var errDatabaseDown = errors.New("database is down")

// fakeCache implements the redis commands the services use. Any other command panics.
type fakeCache struct {
	redis.UniversalClient

	mu      sync.Mutex
	entries map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = asString(value)
	return redis.NewStatusResult("OK", nil)
}

func (c *fakeCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	c.entries[key] = asString(value)
	return redis.NewBoolResult(true, nil)
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := c.entries[k]; ok {
			delete(c.entries, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func asString(v interface{}) string {
	switch b := v.(type) {
	case []byte:
		return string(b)
	case string:
		return b
	}
	return ""
}
