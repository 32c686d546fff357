package log

import (
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromedpAdapter routes chromedp's printf-style hooks into logrus
// chromedp reports unknown CDP events through its error hook, so errors are demoted to warnings
type ChromedpAdapter struct {
	*logrus.Entry // Embed logrus Entry
}

// NewChromedpAdapter creates a new adapter
func NewChromedpAdapter(entry *logrus.Entry) *ChromedpAdapter {
	return &ChromedpAdapter{entry}
}

// Logf logs a protocol-level message
func (l *ChromedpAdapter) Logf(f string, v ...interface{}) { l.Entry.Debugf(f, v...) }

// Errorf logs a protocol error
func (l *ChromedpAdapter) Errorf(f string, v ...interface{}) { l.Entry.Warnf(f, v...) }

// Debugf logs raw CDP traffic
func (l *ChromedpAdapter) Debugf(f string, v ...interface{}) { l.Entry.Tracef(f, v...) }

// ContextOptions wires the adapter into chromedp.NewContext
func (l *ChromedpAdapter) ContextOptions() []chromedp.ContextOption {
	return []chromedp.ContextOption{
		chromedp.WithLogf(l.Logf),
		chromedp.WithErrorf(l.Errorf),
		chromedp.WithDebugf(l.Debugf),
	}
}
