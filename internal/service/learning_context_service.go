package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/specification"
	"ai-tutor-be/internal/repository/unitofwork"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/session"

	"github.com/redis/go-redis/v9"
)

const learningContextCachePrefix = "learning_context:"

// Keys of session.Record.Extra
const (
	ExtraCurrentTopics       = "current_topics"
	ExtraUnresolvedQuestions = "unresolved_questions"
	ExtraSessionGoals        = "session_goals"
)

type ILearningContextService interface {
	session.Persistence
	GetContext(ctx context.Context, sessionId string) (*dto.LearningContextResponse, error)
}

type learningContextService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      redis.UniversalClient
	cacheTTL   time.Duration
	logger     logger.ILogger
}

// NewLearningContextService returns the database backed session persistence.
// cache may be nil, in which case every read goes to the database.
func NewLearningContextService(
	uowFactory unitofwork.RepositoryFactory,
	cache redis.UniversalClient,
	cacheTTL time.Duration,
	log logger.ILogger,
) ILearningContextService {
	return &learningContextService{
		uowFactory: uowFactory,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     log,
	}
}

// GetSessionContext reads the database directly. The record feeds read-merge-write, so
// it must never come from a cache entry that may predate the last save.
func (s *learningContextService) GetSessionContext(ctx context.Context, sessionId string) (*session.Record, error) {
	lc, err := s.find(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if lc == nil {
		return nil, session.ErrNotFound
	}
	return toRecord(lc), nil
}

func (s *learningContextService) SaveSessionContext(ctx context.Context, record *session.Record) error {
	if record == nil || record.SessionID == "" {
		return errors.New("learning context record requires a session id")
	}

	lc := fromRecord(record)
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.LearningContextRepository().Upsert(ctx, lc); err != nil {
		return fmt.Errorf("failed to save learning context for %s: %w", record.SessionID, err)
	}

	s.writeThrough(ctx, lc)
	return nil
}

// GetContext returns the stored learning context, or an empty one for sessions that never
// saved anything.
func (s *learningContextService) GetContext(ctx context.Context, sessionId string) (*dto.LearningContextResponse, error) {
	lc, err := s.load(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if lc == nil {
		lc = &entity.LearningContext{SessionId: sessionId}
	}

	contexts := lc.ModeContexts
	if contexts == nil {
		contexts = map[string]json.RawMessage{}
	}
	return &dto.LearningContextResponse{
		SessionId:           lc.SessionId,
		ActiveMode:          lc.ActiveMode,
		CurrentTopics:       nonNil(lc.CurrentTopics),
		UnresolvedQuestions: nonNil(lc.UnresolvedQuestions),
		SessionGoals:        lc.SessionGoals,
		ModeContexts:        contexts,
		UpdatedAt:           lc.UpdatedAt,
	}, nil
}

// load reads through the cache. Cache errors are logged and the database answers instead.
func (s *learningContextService) load(ctx context.Context, sessionId string) (*entity.LearningContext, error) {
	if lc, ok := s.fromCache(ctx, sessionId); ok {
		return lc, nil
	}

	lc, err := s.find(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if lc != nil {
		s.fill(ctx, lc)
	}
	return lc, nil
}

func (s *learningContextService) find(ctx context.Context, sessionId string) (*entity.LearningContext, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	lc, err := uow.LearningContextRepository().FindOne(ctx, specification.BySessionID{SessionID: sessionId})
	if err != nil {
		return nil, fmt.Errorf("failed to load learning context for %s: %w", sessionId, err)
	}
	return lc, nil
}

func (s *learningContextService) fromCache(ctx context.Context, sessionId string) (*entity.LearningContext, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, learningContextCachePrefix+sessionId).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("LearningContext", "Cache read failed, using database", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
		return nil, false
	}

	var lc entity.LearningContext
	if err := json.Unmarshal(raw, &lc); err != nil {
		s.logger.Warn("LearningContext", "Discarding unreadable cache entry", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return nil, false
	}
	return &lc, true
}

// fill caches a row read from the database only when no entry exists. A save that lands
// between the database read and this call has already written a newer entry.
func (s *learningContextService) fill(ctx context.Context, lc *entity.LearningContext) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(lc)
	if err != nil {
		return
	}
	if err := s.cache.SetNX(ctx, learningContextCachePrefix+lc.SessionId, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("LearningContext", "Cache write failed", map[string]interface{}{
			"session_id": lc.SessionId,
			"error":      err.Error(),
		})
	}
}

// writeThrough replaces the cache entry with the saved row. If that fails the entry is
// dropped so readers go back to the database.
func (s *learningContextService) writeThrough(ctx context.Context, lc *entity.LearningContext) {
	if s.cache == nil {
		return
	}
	key := learningContextCachePrefix + lc.SessionId
	raw, err := json.Marshal(lc)
	if err == nil {
		err = s.cache.Set(ctx, key, raw, s.cacheTTL).Err()
	}
	if err == nil {
		return
	}
	s.logger.Warn("LearningContext", "Cache update failed, invalidating", map[string]interface{}{
		"session_id": lc.SessionId,
		"error":      err.Error(),
	})
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("LearningContext", "Cache invalidation failed", map[string]interface{}{
			"session_id": lc.SessionId,
			"error":      err.Error(),
		})
	}
}

func toRecord(lc *entity.LearningContext) *session.Record {
	contexts := make(map[mode.Name]json.RawMessage, len(lc.ModeContexts))
	for name, data := range lc.ModeContexts {
		contexts[mode.Name(name)] = data
	}
	return &session.Record{
		SessionID:    lc.SessionId,
		ActiveMode:   mode.Name(lc.ActiveMode),
		LastGoodMode: mode.Name(lc.LastGoodMode),
		ModeContexts: contexts,
		Extra: map[string]interface{}{
			ExtraCurrentTopics:       nonNil(lc.CurrentTopics),
			ExtraUnresolvedQuestions: nonNil(lc.UnresolvedQuestions),
			ExtraSessionGoals:        lc.SessionGoals,
		},
	}
}

func fromRecord(r *session.Record) *entity.LearningContext {
	contexts := make(map[string]json.RawMessage, len(r.ModeContexts))
	for name, data := range r.ModeContexts {
		contexts[string(name)] = data
	}
	goals, _ := r.Extra[ExtraSessionGoals].(string)
	return &entity.LearningContext{
		SessionId:           r.SessionID,
		ActiveMode:          string(r.ActiveMode),
		LastGoodMode:        string(r.LastGoodMode),
		CurrentTopics:       stringList(r.Extra[ExtraCurrentTopics]),
		UnresolvedQuestions: stringList(r.Extra[ExtraUnresolvedQuestions]),
		SessionGoals:        goals,
		ModeContexts:        contexts,
	}
}

func stringList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
