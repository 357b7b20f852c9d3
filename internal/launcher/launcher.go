// Package launcher opens indexed entries with the host shell.
package launcher

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
)

// Launcher opens files and reveals them in the platform file manager.
type Launcher interface {
	Launch(path string) error
	Reveal(path string) error
}

// Command is a process the launcher wants started.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// String renders the command for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner starts a command without waiting for it to finish.
type Runner func(cmd Command) error

// StartDetached is the default Runner. The child is reaped in the
// background so it never becomes a zombie.
func StartDetached(c Command) error {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// OSLauncher chooses shell commands by operating system.
type OSLauncher struct {
	goos string
	run  Runner
	stat func(string) (os.FileInfo, error)
}

var _ Launcher = (*OSLauncher)(nil)

// Option configures an OSLauncher.
type Option func(*OSLauncher)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(l *OSLauncher) {
		if r != nil {
			l.run = r
		}
	}
}

// WithGOOS targets a different operating system's commands.
func WithGOOS(goos string) Option {
	return func(l *OSLauncher) {
		if goos != "" {
			l.goos = goos
		}
	}
}

// New creates a launcher for the running platform.
func New(opts ...Option) *OSLauncher {
	l := &OSLauncher{
		goos: runtime.GOOS,
		run:  StartDetached,
		stat: os.Stat,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch opens path with its default handler. Windows executables are
// started directly with their folder as working directory.
func (l *OSLauncher) Launch(path string) error {
	info, err := l.check(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	cmd := l.launchCommand(path, ext, info.IsDir())

	slog.Info("launch_started",
		slog.String("path", path),
		slog.String("extension", ext),
		slog.String("command", cmd.Name))

	if err := l.start(path, cmd); err != nil {
		return err
	}
	slog.Debug("launch_completed", slog.String("path", path))
	return nil
}

// Reveal opens the folder containing path, selecting the entry where the
// file manager supports it.
func (l *OSLauncher) Reveal(path string) error {
	if _, err := l.check(path); err != nil {
		return err
	}

	var cmd Command
	switch l.goos {
	case "windows":
		cmd = Command{Name: "explorer.exe", Args: []string{"/select," + path}}
	case "darwin":
		cmd = Command{Name: "open", Args: []string{"-R", path}}
	default:
		cmd = Command{Name: "xdg-open", Args: []string{filepath.Dir(path)}}
	}

	slog.Info("reveal_started", slog.String("path", path), slog.String("command", cmd.Name))
	return l.start(path, cmd)
}

func (l *OSLauncher) launchCommand(path, ext string, isDir bool) Command {
	switch l.goos {
	case "windows":
		switch {
		case ext == "exe":
			return Command{Name: path, Dir: filepath.Dir(path)}
		case isDir:
			return Command{Name: "explorer.exe", Args: []string{path}}
		default:
			// empty title argument so a quoted path is not taken as one
			return Command{Name: "cmd", Args: []string{"/C", "start", "", path}}
		}
	case "darwin":
		return Command{Name: "open", Args: []string{path}}
	default:
		return Command{Name: "xdg-open", Args: []string{path}}
	}
}

// check verifies path exists before any process is started.
func (l *OSLauncher) check(path string) (os.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidPath, "path is required", nil)
	}
	info, err := l.stat(path)
	switch {
	case err == nil:
		return info, nil
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, apperrors.NotFoundError(path)
	case stderrors.Is(err, fs.ErrPermission):
		return nil, permissionError(path, err)
	default:
		return nil, apperrors.LaunchError(fmt.Sprintf("Failed to open '%s'", path), err)
	}
}

func (l *OSLauncher) start(path string, cmd Command) error {
	err := l.run(cmd)
	if err == nil {
		return nil
	}

	slog.Error("launch_failed",
		slog.String("path", path),
		slog.String("command", cmd.String()),
		slog.String("error", err.Error()))

	if stderrors.Is(err, fs.ErrPermission) {
		return permissionError(path, err)
	}
	return apperrors.LaunchError(fmt.Sprintf("Failed to launch '%s': %v", path, err), err)
}

func permissionError(path string, cause error) *apperrors.AncheckError {
	return apperrors.New(apperrors.ErrCodeFilePermission, fmt.Sprintf("Permission denied: '%s'", path), cause).
		WithDetail("path", path).
		WithSuggestion("This file may require administrator privileges")
}
