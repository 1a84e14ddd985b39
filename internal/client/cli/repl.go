package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	GoogleLogin(ctx context.Context, arg string) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	Page(ctx context.Context, arg string) error
	More(ctx context.Context) error
	Filter(ctx context.Context) error
	ClearFilter(ctx context.Context) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, arg string) error
	Delete(ctx context.Context, arg string) error
	Totals(ctx context.Context) error
	Export(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the tracklet CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — authenticate
//	  - google <cred>  — authenticate with a Google identity credential
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - help           — show available commands
//	  - list | l       — show the current page
//	  - page <n>       — jump to page n
//	  - more           — load the next page (append)
//	  - filter         — set filters interactively
//	  - clear          — drop all filters
//	  - add            — create a transaction
//	  - edit <id>      — edit a transaction
//	  - del <id>       — delete a transaction
//	  - totals         — income/expense/balance for the active filter
//	  - export         — download the filtered set as CSV
//	  - logout         — log out
//	  - exit | quit    — leave the program
//
// Command handlers report their own errors; the loop prints them and keeps
// going, staying focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("tracklet (%s) > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, page <n>, more, filter, clear, add, edit <id>, del <id>, totals, export, logout, exit")
			} else {
				printlnFn("Available commands: register, login, google <credential>, exit")
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "google":
			err = a.GoogleLogin(ctx, arg)

		case "logout":
			err = a.Logout(ctx)

		case "l", "list":
			err = a.List(ctx)

		case "page":
			err = a.Page(ctx, arg)

		case "more":
			err = a.More(ctx)

		case "filter":
			err = a.Filter(ctx)

		case "clear":
			err = a.ClearFilter(ctx)

		case "add":
			err = a.Add(ctx)

		case "edit":
			err = a.Edit(ctx, arg)

		case "del", "delete":
			err = a.Delete(ctx, arg)

		case "totals":
			err = a.Totals(ctx)

		case "export":
			err = a.Export(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
