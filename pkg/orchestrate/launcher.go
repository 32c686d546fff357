package orchestrate

import (
	"context"

	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/sanitize"
	"github.com/Sriram-PR/surfview/pkg/session"
)

// Session is one isolated browser session, exclusively owned by a single render
type Session interface {
	HarvestCookies(ctx context.Context, u sanitize.URL) []models.CookieRecord
	Capture(ctx context.Context, u sanitize.URL, cookies []models.CookieRecord) (*models.Capture, error)
	Close() error
}

// Launcher starts sessions
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to Launcher
type LauncherFunc func(ctx context.Context) (Session, error)

// Launch implements Launcher
func (f LauncherFunc) Launch(ctx context.Context) (Session, error) { return f(ctx) }

// NewChromeLauncher adapts a session.Launcher
func NewChromeLauncher(l *session.Launcher) Launcher {
	return LauncherFunc(func(ctx context.Context) (Session, error) {
		s, err := l.Launch(ctx)
		if err != nil {
			return nil, err // Never wrap a nil *session.Session in the interface
		}
		return s, nil
	})
}
