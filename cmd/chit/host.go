package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/davidad/chit"
	"github.com/davidad/chit/graph"
	"github.com/davidad/chit/uid"
)

var ErrUsage = errors.New("usage")

// Host serializes access to one engine: mutating commands take the
// write lock, queries the read lock.
type Host struct {
	lock sync.RWMutex
	c    *chit.Chit
	out  io.Writer
}

func NewHost(c *chit.Chit, out io.Writer) *Host {
	return &Host{c: c, out: out}
}

type command struct {
	name    string
	args    string
	help    string
	mutates bool
	run     func(h *Host, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"add", "", "create a new entity", true, (*Host).cmdAdd},
		{"rm", "<entity>", "stage the removal of an entity", true, (*Host).cmdRemove},
		{"supersede", "<entity> <canonical>", "stage that an entity is replaced by another", true, (*Host).cmdSupersede},
		{"commit", "", "write the working patch", true, (*Host).cmdCommit},
		{"checkout", "<commit>", "switch the working state to a commit", true, (*Host).cmdCheckout},
		{"revert", "", "drop staged edits", true, (*Host).cmdRevert},
		{"merge", "<commit>", "check that a commit can be merged", false, (*Host).cmdMerge},
		{"load", "", "pick up patch files written by others", true, (*Host).cmdLoad},
		{"list", "", "list the entities of the working state", false, (*Host).cmdList},
		{"count", "", "count the entities of the working state", false, (*Host).cmdCount},
		{"status", "", "show the working patch", false, (*Host).cmdStatus},
		{"commits", "", "list commits in registration order", false, (*Host).cmdCommits},
		{"heads", "", "list heads", false, (*Host).cmdHeads},
		{"graph", "", "draw the commit graph", false, (*Host).cmdGraph},
		{"help", "", "show this help", false, (*Host).cmdHelp},
	}
}

func lookupCommand(name string) (command, bool) {
	switch name {
	case "ls", "show":
		name = "list"
	case "log":
		name = "commits"
	}
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		return command{}, false
	}
	return commands[i], true
}

// Exec runs one command line.
func (h *Host) Exec(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		return fmt.Errorf("command unknown: %s", args[0])
	}
	if cmd.mutates {
		h.lock.Lock()
		defer h.lock.Unlock()
	} else {
		h.lock.RLock()
		defer h.lock.RUnlock()
	}
	return cmd.run(h, args[1:])
}

func parseIDs(args []string, n int, usage string) ([]uid.UUID, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%w: %s", ErrUsage, usage)
	}
	ids := make([]uid.UUID, 0, n)
	for _, arg := range args {
		id, err := uid.ParseBase64URL(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *Host) printIDs(ids iter.Seq[uid.UUID]) {
	for id := range ids {
		fmt.Fprintln(h.out, uid.Base64URL(id))
	}
}

func (h *Host) cmdAdd(args []string) error {
	id, err := h.c.Add()
	if err != nil {
		return err
	}
	fmt.Fprintln(h.out, uid.Base64URL(id))
	return nil
}

func (h *Host) cmdRemove(args []string) error {
	ids, err := parseIDs(args, 1, "rm <entity>")
	if err != nil {
		return err
	}
	return h.c.Remove(ids[0])
}

func (h *Host) cmdSupersede(args []string) error {
	ids, err := parseIDs(args, 2, "supersede <entity> <canonical>")
	if err != nil {
		return err
	}
	return h.c.Supersede(ids[0], ids[1])
}

func (h *Host) cmdCommit(args []string) error {
	id, p, err := h.c.Commit()
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "patch %s\ncommit %s\n", uid.Base64URL(id), uid.Base64URL(p.TargetCommit))
	fmt.Fprintf(h.out, "+%d -%d ~%d\n", len(p.Additions), len(p.Deletions), len(p.Merges))
	return nil
}

func (h *Host) cmdCheckout(args []string) error {
	ids, err := parseIDs(args, 1, "checkout <commit>")
	if err != nil {
		return err
	}
	return h.c.Checkout(ids[0])
}

func (h *Host) cmdRevert(args []string) error {
	return h.c.Revert()
}

func (h *Host) cmdMerge(args []string) error {
	ids, err := parseIDs(args, 1, "merge <commit>")
	if err != nil {
		return err
	}
	base, err := h.c.MergeBase(ids[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "merge base %s\n", uid.Base64URL(base))
	return nil
}

func (h *Host) cmdLoad(args []string) error {
	report, err := h.c.LoadAllPatches(context.Background())
	for _, rej := range report.Rejected {
		fmt.Fprintf(h.out, "rejected %s: %v\n", rej.File, rej.Err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "%d new patches, %d versions\n", report.Registered, report.Materialized)
	return nil
}

func (h *Host) cmdList(args []string) error {
	h.printIDs(h.c.List())
	return nil
}

func (h *Host) cmdCount(args []string) error {
	fmt.Fprintln(h.out, h.c.Count())
	return nil
}

func (h *Host) cmdStatus(args []string) error {
	wp := h.c.WorkingPatch()
	for _, src := range wp.SourceCommits {
		fmt.Fprintf(h.out, "on %s\n", uid.Base64URL(src))
	}
	for _, id := range wp.Additions.Sorted() {
		fmt.Fprintf(h.out, "+ %s\n", uid.Base64URL(id))
	}
	for _, id := range wp.Deletions.Sorted() {
		fmt.Fprintf(h.out, "- %s\n", uid.Base64URL(id))
	}
	for _, id := range slices.SortedFunc(maps.Keys(wp.Merges), uid.Compare) {
		fmt.Fprintf(h.out, "~ %s -> %s\n", uid.Base64URL(id), uid.Base64URL(wp.Merges[id]))
	}
	return nil
}

func (h *Host) cmdCommits(args []string) error {
	h.printIDs(h.c.Commits())
	return nil
}

func (h *Host) cmdHeads(args []string) error {
	h.printIDs(h.c.Heads())
	return nil
}

func (h *Host) cmdGraph(args []string) error {
	fmt.Fprint(h.out, graph.Render(graph.Events(h.c)))
	return nil
}

func (h *Host) cmdHelp(args []string) error {
	for _, c := range commands {
		usage := c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(h.out, "%-34s %s\n", usage, c.help)
	}
	return nil
}
