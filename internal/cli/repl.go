package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Photos(ctx context.Context, id string) error
	Save(ctx context.Context, handle, path string) error
	Export(ctx context.Context, path string) error
	Import(ctx context.Context, path string) error
	Share(ctx context.Context) error
	Shared(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Password(ctx context.Context) error
	Push(ctx context.Context) error
}

const helpText = `Available commands:
  (l)ist                 list memories, newest first
  show <id>              show one memory
  photos <id>            list the photos of a memory with display handles
  save <handle> <path>   write a displayed photo to a file
  add                    record a memory (same date merges)
  edit <id>              change date, note and photos
  delete <id>            delete a memory and its photos
  export [path]          write the collection as JSON
  import <path>          replace the collection from JSON
  share                  set what viewers see
  shared                 list what viewers see
  unlock | lock          start or end a session
  password               set or change the passwords
  push                   copy local memories to the remote store
  exit | quit            leave the program`

type command struct {
	minArgs int
	usage   string
	run     func(ctx context.Context, a execIface, args []string) error
}

var commands = map[string]command{
	"list":     {0, "", func(ctx context.Context, a execIface, _ []string) error { return a.List(ctx) }},
	"show":     {1, "show <id>", func(ctx context.Context, a execIface, args []string) error { return a.Show(ctx, args[0]) }},
	"photos":   {1, "photos <id>", func(ctx context.Context, a execIface, args []string) error { return a.Photos(ctx, args[0]) }},
	"save":     {2, "save <handle> <path>", func(ctx context.Context, a execIface, args []string) error { return a.Save(ctx, args[0], args[1]) }},
	"add":      {0, "", func(ctx context.Context, a execIface, _ []string) error { return a.Add(ctx) }},
	"edit":     {1, "edit <id>", func(ctx context.Context, a execIface, args []string) error { return a.Edit(ctx, args[0]) }},
	"delete":   {1, "delete <id>", func(ctx context.Context, a execIface, args []string) error { return a.Delete(ctx, args[0]) }},
	"import":   {1, "import <path>", func(ctx context.Context, a execIface, args []string) error { return a.Import(ctx, args[0]) }},
	"share":    {0, "", func(ctx context.Context, a execIface, _ []string) error { return a.Share(ctx) }},
	"shared":   {0, "", func(ctx context.Context, a execIface, _ []string) error { return a.Shared(ctx) }},
	"unlock":   {0, "", func(ctx context.Context, a execIface, _ []string) error { return a.Unlock(ctx) }},
	"lock":     {0, "", func(ctx context.Context, a execIface, _ []string) error { return a.Lock(ctx) }},
	"password": {0, "", func(ctx context.Context, a execIface, _ []string) error { return a.Password(ctx) }},
	"push":     {0, "", func(ctx context.Context, a execIface, _ []string) error { return a.Push(ctx) }},
	"export": {0, "", func(ctx context.Context, a execIface, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return a.Export(ctx, path)
	}},
}

// runREPL reads a line from scanner, parses the first token as the command
// and dispatches to a. The loop exits on scanner EOF, on "exit" or "quit",
// or when ctx is cancelled. Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("moments %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help":
			printlnFn(helpText)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "l":
			name = "list"
		}

		cmd, ok := commands[name]
		if !ok {
			printlnFn("Unknown command:", name)
			continue
		}
		if len(args) < cmd.minArgs {
			printlnFn("Usage:", cmd.usage)
			continue
		}
		if err := cmd.run(ctx, a, args); err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
