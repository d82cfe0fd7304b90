package integration

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"testing"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/specification"
	"ai-tutor-be/internal/repository/unitofwork"
	"ai-tutor-be/internal/service"
	"ai-tutor-be/pkg/database"
	"ai-tutor-be/pkg/mode"
	"ai-tutor-be/pkg/mode/session"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.LearningContext{}, &model.ModeSwitchLog{}))
	return gormDB
}

func TestLearningContextRepository(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)
	repo := uow.LearningContextRepository()
	sessionId := "it-" + uuid.NewString()
	t.Cleanup(func() { _ = repo.Delete(ctx, sessionId) })

	missing, err := repo.FindOne(ctx, specification.BySessionID{SessionID: sessionId})
	require.NoError(t, err)
	assert.Nil(t, missing)

	lc := &entity.LearningContext{
		SessionId:     sessionId,
		CurrentTopics: []string{"cells"},
		SessionGoals:  "pass biology",
		ModeContexts:  map[string]json.RawMessage{"learn": json.RawMessage(`{"topic":"cells"}`)},
	}
	require.NoError(t, repo.Upsert(ctx, lc))

	lc.ModeContexts["review"] = json.RawMessage(`{"last":["osmosis"]}`)
	lc.ActiveMode = "review"
	lc.LastGoodMode = "learn"
	require.NoError(t, repo.Upsert(ctx, lc))

	got, err := repo.FindOne(ctx, specification.BySessionID{SessionID: sessionId})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"cells"}, got.CurrentTopics)
	assert.Equal(t, "pass biology", got.SessionGoals)
	assert.Equal(t, "review", got.ActiveMode)
	assert.Equal(t, "learn", got.LastGoodMode)
	assert.JSONEq(t, `{"topic":"cells"}`, string(got.ModeContexts["learn"]))
	assert.JSONEq(t, `{"last":["osmosis"]}`, string(got.ModeContexts["review"]))
}

func TestModeSwitchLogRepository(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx).ModeSwitchLogRepository()
	sessionId := "it-" + uuid.NewString()
	t.Cleanup(func() { db.Where("session_id = ?", sessionId).Delete(&model.ModeSwitchLog{}) })

	for i, to := range []string{"learn", "assess", "review"} {
		require.NoError(t, repo.Create(ctx, &entity.ModeSwitchLog{
			Id:        uuid.New(),
			SessionId: sessionId,
			ToMode:    to,
			Trigger:   "rule",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	count, err := repo.Count(ctx, specification.BySessionID{SessionID: sessionId})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	logs, err := repo.FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 2},
	)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "review", logs[0].ToMode)

	one, err := repo.FindAll(ctx, specification.ByID{ID: logs[1].Id})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "assess", one[0].ToMode)
}

func TestLearningContextService_Persistence(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	factory := unitofwork.NewRepositoryFactory(db)
	svc := service.NewLearningContextService(factory, nil, time.Minute, logger.NewNopLogger())
	sessionId := "it-" + uuid.NewString()
	t.Cleanup(func() { _ = factory.NewUnitOfWork(ctx).LearningContextRepository().Delete(ctx, sessionId) })

	_, err := svc.GetSessionContext(ctx, sessionId)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, svc.SaveSessionContext(ctx, &session.Record{
		SessionID:    sessionId,
		ModeContexts: map[mode.Name]json.RawMessage{mode.Plan: json.RawMessage(`{"last_goal":"exam"}`)},
		Extra:        map[string]interface{}{service.ExtraSessionGoals: "exam"},
	}))

	record, err := svc.GetSessionContext(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, "exam", record.Extra[service.ExtraSessionGoals])
	assert.JSONEq(t, `{"last_goal":"exam"}`, string(record.ModeContexts[mode.Plan]))
}
