package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("add"),
	readline.PcItem("rm"),
	readline.PcItem("supersede"),
	readline.PcItem("commit"),
	readline.PcItem("checkout"),
	readline.PcItem("revert"),
	readline.PcItem("merge"),
	readline.PcItem("load"),

	readline.PcItem("list"),
	readline.PcItem("count"),
	readline.PcItem("status"),
	readline.PcItem("commits"),
	readline.PcItem("heads"),
	readline.PcItem("graph"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

type REPL struct {
	host *Host
	rl   *readline.Instance
}

func (repl *REPL) Open(historyFile string) (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

// Run reads commands until exit or EOF.
func (repl *REPL) Run() error {
	for {
		line, err := repl.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		switch line {
		case "exit", "quit":
			return nil
		}
		if err := repl.host.Exec(line); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		}
	}
}
