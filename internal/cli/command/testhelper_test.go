package command

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
)

// runApp runs blazar-cli with args and an isolated profile path, returning
// what the command wrote.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runAppWith(t, App(), filepath.Join(t.TempDir(), "cli.yaml"), args...)
}

func runAppWith(t *testing.T, app *cli.App, profile string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard

	full := append([]string{"blazar-cli", "--profile", profile}, args...)
	err := app.Run(full)
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
