// Package host adapts the navigation core's collaborators to the machine the
// shell runs on: installed applications are configured commands and the
// external browser is the desktop default.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
)

// URLPlaceholder in a command's arguments is replaced with the handed-off URL.
// Without one, the URL is appended as the last argument.
const URLPlaceholder = "{url}"

// App maps a package identifier to the command that opens it.
type App struct {
	Package string   `yaml:"package" json:"package"`
	Command []string `yaml:"command" json:"command"`
}

// Apps implements navigation.AppRegistry and navigation.AppLauncher.
type Apps struct {
	commands map[string][]string
	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

// NewApps indexes entries by package. Later entries win.
func NewApps(entries []App) *Apps {
	commands := make(map[string][]string, len(entries))
	for _, e := range entries {
		pkg := strings.TrimSpace(e.Package)
		if pkg == "" || len(e.Command) == 0 {
			continue
		}
		commands[pkg] = append([]string(nil), e.Command...)
	}
	return &Apps{commands: commands, lookPath: exec.LookPath, start: startDetached}
}

// IsInstalled reports whether pkg is configured and its executable resolves.
func (a *Apps) IsInstalled(packageID string) bool {
	argv, ok := a.commands[packageID]
	if !ok {
		return false
	}
	_, err := a.lookPath(argv[0])
	return err == nil
}

// Launch starts the application without waiting for it to exit.
func (a *Apps) Launch(ctx context.Context, packageID, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	argv, ok := a.commands[packageID]
	if !ok {
		return fmt.Errorf("host: no command for %s", packageID)
	}
	path, err := a.lookPath(argv[0])
	if err != nil {
		return fmt.Errorf("host: resolve %s: %w", argv[0], err)
	}

	cmd := exec.Command(path, expandArgs(argv[1:], rawURL)...)
	if err := a.start(cmd); err != nil {
		return fmt.Errorf("host: start %s: %w", packageID, err)
	}
	slog.Info("application launched", "package_id", packageID, "path", path)
	return nil
}

// Packages lists configured package identifiers, sorted.
func (a *Apps) Packages() []string {
	out := make([]string, 0, len(a.commands))
	for pkg := range a.commands {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

func expandArgs(args []string, rawURL string) []string {
	out := make([]string, 0, len(args)+1)
	replaced := false
	for _, arg := range args {
		if strings.Contains(arg, URLPlaceholder) {
			arg = strings.ReplaceAll(arg, URLPlaceholder, rawURL)
			replaced = true
		}
		out = append(out, arg)
	}
	if !replaced {
		out = append(out, rawURL)
	}
	return out
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("application exited", "path", cmd.Path, "error", err)
		}
	}()
	return nil
}
