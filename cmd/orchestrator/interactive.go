package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/homestead/orchestrator/pkg/persistence"
	"github.com/homestead/orchestrator/pkg/queue"
	"github.com/homestead/orchestrator/pkg/route"
	"github.com/homestead/orchestrator/pkg/schedule"
	"github.com/homestead/orchestrator/pkg/scheduler"
)

// console is the interactive operator prompt: enqueue commands, trust
// a newly-discovered device, inspect queue status, and capture a
// diagnostic snapshot, all without leaving the running process. It
// uses the Scheduler Engine's public API, the routing table's Trust
// method, and persistence.CaptureRuntimeSnapshot's read-only view of
// the routes, tracker and queue registry — never a device's endpoint
// or wire frame directly.
type console struct {
	engine    *scheduler.Engine
	routes    *route.Table
	snapshots *persistence.SnapshotStore
	tracker   *schedule.Tracker
	registry  *queue.Registry
}

func newConsole(engine *scheduler.Engine, routes *route.Table, snapshots *persistence.SnapshotStore, tracker *schedule.Tracker, registry *queue.Registry) *console {
	return &console{
		engine:    engine,
		routes:    routes,
		snapshots: snapshots,
		tracker:   tracker,
		registry:  registry,
	}
}

const consoleHelp = `Commands:
  enqueue <device> <priority> <action>   queue a command (priority: low, normal, high, critical)
  trust <device>                         clear pending-trust on a device's route
  status <device>                        show a device's queue status
  snapshot                               capture a runtime diagnostic snapshot
  help                                   show this message
  quit                                   exit the orchestrator
`

// Run drives the prompt until the operator quits or stdin closes.
// Readline is not available in non-interactive environments (no
// controlling TTY); Run logs and returns immediately rather than
// looping on a broken input stream.
func (c *console) Run() {
	historyPath := ""
	if dir, err := os.UserCacheDir(); err == nil {
		historyPath = filepath.Join(dir, "orchestrator", "console_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "orchestrator> ",
		HistoryFile:       historyPath,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "console: readline unavailable: %v\n", err)
		return
	}
	defer rl.Close()

	fmt.Println("Homestead Orchestrator operator console. Type 'help' for commands.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println("(Ctrl+C again or type 'quit' to exit)")
			line2, err2 := rl.Readline()
			if err2 == readline.ErrInterrupt {
				return
			}
			line, err = line2, err2
		}
		if err != nil {
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "help", "?":
			fmt.Print(consoleHelp)
		case "quit", "exit":
			return
		case "enqueue":
			c.handleEnqueue(fields[1:])
		case "trust":
			c.handleTrust(fields[1:])
		case "status":
			c.handleStatus(fields[1:])
		case "snapshot":
			c.handleSnapshot()
		default:
			fmt.Printf("unknown command %q (try 'help')\n", fields[0])
		}
	}
}

func (c *console) handleEnqueue(args []string) {
	if len(args) < 3 {
		fmt.Println("usage: enqueue <device> <priority> <action>")
		return
	}
	deviceID, priorityArg, action := args[0], args[1], args[2]

	priority, err := parsePriority(priorityArg)
	if err != nil {
		fmt.Println(err)
		return
	}

	cmd := queue.Command{
		DeviceID: deviceID,
		Priority: priority,
		Payload:  map[string]any{"action": action},
	}
	if err := c.engine.Enqueue(context.Background(), cmd); err != nil {
		fmt.Printf("enqueue failed: %v\n", err)
		return
	}
	fmt.Printf("queued %s for %s (priority %s)\n", action, deviceID, priority)
}

func parsePriority(s string) (queue.Priority, error) {
	switch strings.ToLower(s) {
	case "low":
		return queue.Low, nil
	case "normal":
		return queue.Normal, nil
	case "high":
		return queue.High, nil
	case "critical":
		return queue.Critical, nil
	default:
		return 0, fmt.Errorf("invalid priority %q (want low, normal, high, critical)", s)
	}
}

func (c *console) handleTrust(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: trust <device>")
		return
	}
	if err := c.routes.Trust(args[0]); err != nil {
		fmt.Printf("trust failed: %v\n", err)
		return
	}
	fmt.Printf("device %s trusted, dispatch enabled\n", args[0])
}

func (c *console) handleStatus(args []string) {
	if len(args) < 1 {
		fmt.Println("usage: status <device>")
		return
	}
	status, ok := c.engine.QueryQueueStatus(args[0])
	if !ok {
		fmt.Printf("no schedule known for %s yet\n", args[0])
		return
	}
	fmt.Printf("device:     %s\n", status.DeviceID)
	fmt.Printf("mode:       %s\n", status.CurrentMode)
	fmt.Printf("queued:     %d\n", status.QueuedCommands)
	fmt.Printf("connected:  %t\n", status.Connected)
	if status.TimeUntilCmdWindow != nil {
		fmt.Printf("cmd window: in %s\n", status.TimeUntilCmdWindow.Round(0))
	}
}

func (c *console) handleSnapshot() {
	snap := persistence.CaptureRuntimeSnapshot(c.routes, c.tracker, c.registry)
	fmt.Printf("routes: %d, schedules: %d, devices with queued commands: %d\n",
		len(snap.Routes), len(snap.Schedules), len(snap.QueueDepths))

	if c.snapshots == nil {
		fmt.Println("no -snapshot-dir configured, snapshot not persisted to disk")
		return
	}
	if err := c.snapshots.Save(&snap); err != nil {
		fmt.Printf("failed to save snapshot: %v\n", err)
		return
	}
	fmt.Println("snapshot saved")
}
