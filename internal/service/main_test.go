package service

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"qa_forum_backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}
