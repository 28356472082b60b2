package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/storage"
	"github.com/dmitrijs2005/havengate/internal/common"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	RequireLogin(ctx context.Context) (*models.SessionUser, error)
	isAdmin(ctx context.Context) bool
	Whoami(ctx context.Context) error
	Users(ctx context.Context) error
	AddUser(ctx context.Context) error
	Owner(ctx context.Context) error
	Audit(ctx context.Context, args []string) error
	ExportAudit(ctx context.Context, args []string) error
	Result(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

const (
	helpUser  = "Available commands: help, whoami, owner, result, logout, exit"
	helpAdmin = "Available commands: help, whoami, users, adduser, owner, audit [security|session|activity] [n], export-audit [stream], result, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// Lines share reader with the interactive prompts, so commands that ask
// for input see the lines that follow.
//
// Command errors are printed and the loop continues, except for storage
// failures and a failed login after logout, which end the loop with the
// error. EOF and "exit" end it with nil.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) error {
	for {
		printlnFn(fmt.Sprintf("hg %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isAdmin(ctx) {
				printlnFn(helpAdmin)
			} else {
				printlnFn(helpUser)
			}

		case "whoami":
			cmdErr = a.Whoami(ctx)

		case "users":
			cmdErr = a.Users(ctx)

		case "adduser":
			cmdErr = a.AddUser(ctx)

		case "owner":
			cmdErr = a.Owner(ctx)

		case "audit":
			cmdErr = a.Audit(ctx, args)

		case "export-audit":
			cmdErr = a.ExportAudit(ctx, args)

		case "result":
			cmdErr = a.Result(ctx, args)

		case "logout":
			if cmdErr = a.Logout(ctx); cmdErr == nil {
				if _, err := a.RequireLogin(ctx); err != nil {
					return err
				}
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return nil

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			if storage.IsFatal(cmdErr) {
				return cmdErr
			}
			printlnFn(common.Message(cmdErr))
		}

		if err != nil {
			// EOF after a final unterminated line.
			return nil
		}
	}
}
