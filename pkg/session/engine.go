package session

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/Sriram-PR/surfview/pkg/utils"
)

// ExecCandidates are engine binaries looked up on PATH, in order
var ExecCandidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
}

// darwinCandidates are absolute install locations checked on macOS
var darwinCandidates = []string{
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

var lookPath = exec.LookPath

// ResolveExecPath locates the rendering engine
// Installed candidates are tried first; override is consulted only when none is found
// Failure wraps utils.ErrEngineNotFound and is fatal for the render capability
func ResolveExecPath(override string) (string, error) {
	for _, name := range ExecCandidates {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	if runtime.GOOS == "darwin" {
		for _, p := range darwinCandidates {
			if isExecutable(p) {
				return p, nil
			}
		}
	}
	if override != "" {
		if isExecutable(override) {
			return override, nil
		}
		return "", fmt.Errorf("%w: override %q is not an executable file", utils.ErrEngineNotFound, override)
	}
	return "", fmt.Errorf("%w: none of %v on PATH and no override set", utils.ErrEngineNotFound, ExecCandidates)
}

func isExecutable(p string) bool {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
