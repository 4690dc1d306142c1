package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Egor213/JewelCRM/pkg/logger"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New("debug", logger.FormatJSON, &buf)

	l.WithField("request_id", "abc").Debug("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "abc", line["request_id"])
	assert.Contains(t, line["file"], "logger_test.go:")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New("loud", logger.FormatText, &buf)

	assert.Equal(t, log.InfoLevel, l.GetLevel())
}
