package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// command-table REPL over stdin: parses a line into a command name and
// arguments, dispatches to a registered handler, with a plain callback
// prompt prefix so it has no dependency on the transport layer.
type inputReader struct {
	scanner  *bufio.Scanner
	handlers map[string][]func(args []string)
	prompt   func() string
}

func newInputReader(prompt func() string) *inputReader {
	return &inputReader{
		scanner:  bufio.NewScanner(os.Stdin),
		handlers: make(map[string][]func(args []string)),
		prompt:   prompt,
	}
}

func (ir *inputReader) addHandler(cmd string, handler func(args []string)) {
	ir.handlers[cmd] = append(ir.handlers[cmd], handler)
}

// loop blocks until an "exit" command is processed or stdin is closed.
func (ir *inputReader) loop() {
	fmt.Println("Ready for commands. Type 'exit' to stop, 'help' for a list of commands.")

	for {
		fmt.Printf("%s > ", ir.prompt())

		if !ir.scanner.Scan() {
			if err := ir.scanner.Err(); err != nil {
				fmt.Fprintln(os.Stderr, "error reading from stdin:", err)
			}
			break
		}

		parts := strings.Fields(ir.scanner.Text())
		if len(parts) == 0 {
			continue
		}

		command := strings.ToLower(parts[0])
		args := parts[1:]

		switch {
		case command == "exit":
			for _, handler := range ir.handlers[command] {
				handler(args)
			}
			return
		case command == "help":
			fmt.Println("Available commands:")
			for cmd := range ir.handlers {
				fmt.Printf("- %s\n", cmd)
			}
		default:
			if _, exists := ir.handlers[command]; !exists {
				fmt.Printf("no handler registered for command: %q\n", command)
				continue
			}
			for _, handler := range ir.handlers[command] {
				handler(args)
			}
		}
	}
}
