package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
	errs  map[string]error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return f.errs[name]
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) Use(ctx context.Context, args []string) error    { return f.record("use", args) }
func (f *fakeExec) Sync(ctx context.Context) error                  { return f.record("sync", nil) }
func (f *fakeExec) List(ctx context.Context) error                  { return f.record("list", nil) }
func (f *fakeExec) Add(ctx context.Context, args []string) error    { return f.record("add", args) }
func (f *fakeExec) Remove(ctx context.Context, args []string) error { return f.record("remove", args) }
func (f *fakeExec) Publish(ctx context.Context) error               { return f.record("publish", nil) }
func (f *fakeExec) Folder(ctx context.Context, args []string) error { return f.record("folder", args) }
func (f *fakeExec) Pause() error                                    { return f.record("pause", nil) }
func (f *fakeExec) Resume() error                                   { return f.record("resume", nil) }

func runScript(t *testing.T, exec *fakeExec, lines ...string) []string {
	t.Helper()

	origPrint := printlnFn
	var printed []string
	printlnFn = func(args ...any) (int, error) {
		var parts []string
		for _, a := range args {
			if s, ok := a.(string); ok {
				parts = append(parts, s)
			}
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })

	sc := bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n")))
	runREPL(context.Background(), exec, func() string { return "status" }, sc)
	return printed
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	exec := &fakeExec{}
	runScript(t, exec,
		"login",
		"use follows work",
		"sync",
		"list",
		"add -p pk1 alice",
		"remove pk1",
		"publish",
		"folder add Work",
		"pause",
		"resume",
		"logout",
		"exit",
	)

	require.Equal(t, []string{
		"login", "use", "sync", "list", "add", "remove",
		"publish", "folder", "pause", "resume", "logout",
	}, exec.calls)
	require.Equal(t, []string{"follows", "work"}, exec.args[1])
	require.Equal(t, []string{"-p", "pk1", "alice"}, exec.args[4])
	require.Equal(t, []string{"add", "Work"}, exec.args[7])
}

func TestRunREPL_ShortFormsAndUnknown(t *testing.T) {
	exec := &fakeExec{loggedIn: true}
	printed := runScript(t, exec,
		"l",
		"rm pk1",
		"f",
		"frobnicate",
		"quit",
	)

	require.Equal(t, []string{"list", "remove", "folder"}, exec.calls)
	require.Contains(t, printed, "Unknown command: frobnicate")
}

func TestRunREPL_CommandErrorsDoNotStopLoop(t *testing.T) {
	exec := &fakeExec{
		loggedIn: true,
		errs:     map[string]error{"sync": errors.New("relay unreachable")},
	}
	runScript(t, exec,
		"sync",
		"list",
		"exit",
	)

	// The failed sync is reported and the next command still runs.
	require.Equal(t, []string{"sync", "list"}, exec.calls)
}

func TestRunREPL_ExitsOnEOF(t *testing.T) {
	exec := &fakeExec{}
	runScript(t, exec, "sync")
	require.Equal(t, []string{"sync"}, exec.calls)
}
