package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dmitrijs2005/auditkeeper/internal/client/orchestrator"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ListTemplates(ctx context.Context, args []string) error
	ListAudits(ctx context.Context, args []string) error
	ListActions(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Start(ctx context.Context, args []string) error
	Answer(ctx context.Context, args []string) error
	Note(ctx context.Context, args []string) error
	Photo(ctx context.Context, args []string) error
	Photos(ctx context.Context, args []string) error
	Complete(ctx context.Context, args []string) error
	NewAction(ctx context.Context, args []string) error
	ActionStatus(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Enhance(ctx context.Context, args []string) error
}

const helpLoggedOut = "Available commands: register, login, exit"

const helpLoggedIn = `Available commands:
  templates                          list templates
  audits                             list audits
  actions [auditID]                  list corrective actions
  show <auditID>                     show an audit's questions and answers
  start <templateID> [location]      start a new audit
  answer <auditID> <questionID> <v>  record an answer (pass, fail, na, 1-5, option, text)
  note <auditID> <questionID>        write a note for a question
  photo <auditID> <questionID> <f>   attach an image file to a question
  photos <auditID>                   list an audit's photos with download links
  enhance <auditID> <questionID>     polish a note with the assistant
  complete <auditID>                 finish an audit, score it and derive actions
  newaction [auditID]                create an action
  actionstatus <actionID> <status>   move an action to in_progress or completed
  delete <audit|action|template> <id>
  restore                            bring back hidden built-in templates
  sync                               reconcile with the server now
  status                             show sync status and counters
  logout, exit`

// runREPL starts a simple read–eval–print loop.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a' with the remaining tokens as arguments.
// Commands other than help, register, login and exit require a login.
// Errors returned by handlers are printed and the loop continues. The loop
// exits on EOF, on "exit" or "quit", or when ctx is done.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("ak %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpLoggedIn)
		} else {
			printlnFn(helpLoggedOut)
		}
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	}

	handlers := map[string]func(context.Context, []string) error{
		"templates":    a.ListTemplates,
		"audits":       a.ListAudits,
		"actions":      a.ListActions,
		"show":         a.Show,
		"start":        a.Start,
		"answer":       a.Answer,
		"note":         a.Note,
		"photo":        a.Photo,
		"photos":       a.Photos,
		"enhance":      a.Enhance,
		"complete":     a.Complete,
		"newaction":    a.NewAction,
		"actionstatus": a.ActionStatus,
		"delete":       a.Delete,
		"restore":      a.Restore,
		"sync":         a.Sync,
		"status":       a.Status,
		"logout":       func(ctx context.Context, _ []string) error { return a.Logout(ctx) },
	}
	h, ok := handlers[cmd]
	if !ok {
		printlnFn("Unknown command:", cmd)
		return nil
	}
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	return h(ctx, args)
}

// getStatus renders "(user status)" for the prompt, with the status word
// coloured.
func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	s += colorStatus(a.currentStatus(), a.engine.Online())
	return fmt.Sprintf("(%s)", s)
}

func colorStatus(s orchestrator.Status, online bool) string {
	word := string(s)
	if !online {
		word += "/offline"
	}
	switch s {
	case orchestrator.StatusSynced:
		return color.New(color.FgGreen).Sprint(word)
	case orchestrator.StatusSyncing:
		return color.New(color.FgCyan).Sprint(word)
	case orchestrator.StatusDegraded:
		return color.New(color.FgYellow).Sprint(word)
	case orchestrator.StatusError:
		return color.New(color.FgRed).Sprint(word)
	default:
		return word
	}
}
