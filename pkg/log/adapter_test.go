package log

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newDiscardEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestNewChromedpAdapter(t *testing.T) {
	adapter := NewChromedpAdapter(newDiscardEntry())
	assert.NotNil(t, adapter)
	assert.Len(t, adapter.ContextOptions(), 3)
}

func TestChromedpAdapter_Methods(t *testing.T) {
	adapter := NewChromedpAdapter(newDiscardEntry())

	assert.NotPanics(t, func() { adapter.Logf("log %s", "test") })
	assert.NotPanics(t, func() { adapter.Errorf("error %d", 42) })
	assert.NotPanics(t, func() { adapter.Debugf("debug") })
}

func TestChromedpAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	logger.SetLevel(logrus.InfoLevel)
	adapter := NewChromedpAdapter(logrus.NewEntry(logger))

	adapter.Logf("protocol chatter")
	adapter.Debugf("raw frame")
	assert.Empty(t, buf.String())

	adapter.Errorf("could not unmarshal event: %s", "Page.fooBar")
	assert.Contains(t, buf.String(), "level=warning")
	assert.Contains(t, buf.String(), "Page.fooBar")
}
