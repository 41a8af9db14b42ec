package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Use(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	List(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Publish(ctx context.Context) error
	Folder(ctx context.Context, args []string) error
	Pause() error
	Resume() error
}

// runREPL reads a line, parses the first token as the command and
// dispatches to methods on 'a'. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop continues;
// a failed relay round or a locked file must never kill the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ls> %s ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: use, sync, (l)ist, add, remove, publish, folder, pause, resume, logout, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "use":
			err = a.Use(ctx, args)

		case "sync":
			err = a.Sync(ctx)

		case "l", "list":
			err = a.List(ctx)

		case "add":
			err = a.Add(ctx, args)

		case "remove", "rm":
			err = a.Remove(ctx, args)

		case "publish":
			err = a.Publish(ctx)

		case "folder", "f":
			err = a.Folder(ctx, args)

		case "pause":
			err = a.Pause()

		case "resume":
			err = a.Resume()

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
