package service

import (
	"context"
	"testing"

	"ai-tutor-be/internal/dto"
	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/specification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLogReader struct {
	level         string
	limit, offset int
}

func (s *stubLogReader) GetLogs(level string, limit, offset int) ([]logger.LogEntry, error) {
	s.level, s.limit, s.offset = level, limit, offset
	return []logger.LogEntry{{Id: "a", Level: level}}, nil
}

func (s *stubLogReader) GetLogById(id string) (*logger.LogEntry, error) {
	return &logger.LogEntry{Id: id}, nil
}

func TestMonitoring_GetLogs(t *testing.T) {
	reader := &stubLogReader{}
	svc := NewMonitoringService(reader, newFakeDB())

	logs, err := svc.GetLogs(context.Background(), &dto.GetLogsRequest{Level: "error", Limit: 5, Offset: 10})

	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, "error", reader.level)
	assert.Equal(t, 5, reader.limit)
	assert.Equal(t, 10, reader.offset)

	entry, err := svc.GetLogById(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", entry.Id)
}

func TestMonitoring_GetModeSwitches(t *testing.T) {
	db := newFakeDB()
	db.logs = []*entity.ModeSwitchLog{{SessionId: "s1", FromMode: "learn", ToMode: "review", Trigger: "rule"}}
	svc := NewMonitoringService(&stubLogReader{}, db)

	res, err := svc.GetModeSwitches(context.Background(), &dto.GetModeSwitchesRequest{SessionId: "s1"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "review", res.Items[0].ToMode)
	assert.Contains(t, db.specs, specification.Specification(specification.BySessionID{SessionID: "s1"}))
	assert.Contains(t, db.specs, specification.Specification(specification.Pagination{Limit: 50}))
}
