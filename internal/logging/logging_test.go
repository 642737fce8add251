package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevelAndFormat(t *testing.T) {
	logger := New("debug", "json")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = New("loud", "")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestAttachFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fuelbill.log")
	logger := New("info", "text")
	closeFn, err := AttachFile(logger, path)
	require.NoError(t, err)

	logger.WithField("run", "r1").Info("bill processed")
	require.NoError(t, closeFn())

	blob, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(blob), "bill processed")
	assert.Contains(t, string(blob), "run=r1")

	closeFn, err = AttachFile(logger, "")
	require.NoError(t, err)
	assert.NoError(t, closeFn())
}
