// Command orchestrator runs the homestead edge orchestrator: it
// discovers serial-attached devices, tracks their data/command duty
// cycle, and schedules outbound commands through the Scheduler Engine.
//
// Usage:
//
//	orchestrator [flags]
//
// Flags:
//
//	-config string       Configuration file path (YAML)
//	-instance-id string  Overrides config's discovery.instance_id
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-interactive         Enable the interactive operator console
//	-snapshot-dir string Directory for runtime diagnostic snapshots
//	-reset               Clear any existing diagnostic snapshot before starting
//
// Examples:
//
//	# Start with a config file
//	orchestrator -config /etc/orchestrator/orchestrator.yaml
//
//	# Start with an interactive operator console
//	orchestrator -config orchestrator.yaml -interactive
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/homestead/orchestrator/pkg/bus"
	"github.com/homestead/orchestrator/pkg/config"
	"github.com/homestead/orchestrator/pkg/discovery"
	"github.com/homestead/orchestrator/pkg/events"
	orchlog "github.com/homestead/orchestrator/pkg/log"
	"github.com/homestead/orchestrator/pkg/persistence"
	"github.com/homestead/orchestrator/pkg/queue"
	"github.com/homestead/orchestrator/pkg/route"
	"github.com/homestead/orchestrator/pkg/schedule"
	"github.com/homestead/orchestrator/pkg/scheduler"
	"github.com/homestead/orchestrator/pkg/transport"
)

// Flags holds the command-line configuration; everything else comes
// from the YAML config file named by ConfigFile.
type Flags struct {
	ConfigFile  string
	InstanceID  string
	LogLevel    string
	Interactive bool
	SnapshotDir string
	Reset       bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.InstanceID, "instance-id", "", "Overrides config's discovery.instance_id")
	flag.StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable the interactive operator console")
	flag.StringVar(&flags.SnapshotDir, "snapshot-dir", "", "Directory for runtime diagnostic snapshots")
	flag.BoolVar(&flags.Reset, "reset", false, "Clear any existing diagnostic snapshot before starting")
}

func main() {
	flag.Parse()
	setupLogging(flags.LogLevel)

	log.Println("Homestead Orchestrator")
	log.Println("======================")

	cfg := loadConfig()
	if flags.InstanceID != "" {
		cfg.Discovery.InstanceID = flags.InstanceID
	}

	eventLog, eventLogFile := buildEventLog(cfg, flags.LogLevel)
	defer closeEventLog(eventLogFile)

	b, telemetry := bus.New()
	routes := route.New(b)
	tracker := schedule.NewTracker()
	registry := queue.NewRegistry(cfg.Queue.DefaultCapacity)

	identity := cfg.Discovery.InstanceID
	if identity == "" {
		identity = "orchestrator"
	}

	mgr := transport.NewManager(b, routes, nil, identity, cfg.Bus.OutboundTopics)
	mgr.SetSerialSources(cfg.Serial.Roots, cfg.Serial.Globs)
	mgr.SetLogger(eventLog)

	engine := scheduler.NewEngine(b, tracker, registry, routes, mgr)

	snapshots := buildSnapshotStore(flags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr.Start(ctx)
	go engine.Run(ctx, telemetry)
	go pruneSchedules(ctx, tracker, cfg)
	go tapSchedulerEvents(ctx, b, eventLog)

	advertiser, browser := startDiscovery(ctx, cfg, routes, registry)

	if flags.Interactive {
		console := newConsole(engine, routes, snapshots, tracker, registry)
		go func() {
			console.Run()
			cancel()
		}()
	}

	waitForShutdown(ctx)

	log.Println("Shutting down...")
	if advertiser != nil {
		_ = advertiser.Stop()
	}
	if browser != nil {
		browser.Stop()
	}

	if snapshots != nil {
		snap := persistence.CaptureRuntimeSnapshot(routes, tracker, registry)
		if err := snapshots.Save(&snap); err != nil {
			log.Printf("Warning: failed to save diagnostic snapshot: %v", err)
		}
	}

	log.Println("Goodbye!")
}

func loadConfig() *config.Config {
	if flags.ConfigFile == "" {
		log.Println("No -config given, running with defaults")
		return &config.Config{}
	}
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}

// buildEventLog wires the diagnostic .sselog file, if configured. At
// -log-level debug, events are also mirrored to the console through a
// SlogAdapter via MultiLogger, so an operator debugging live doesn't
// have to tail the file in a second terminal.
func buildEventLog(cfg *config.Config, level string) (orchlog.Logger, *orchlog.FileLogger) {
	if cfg.Log.Path == "" {
		return orchlog.NoopLogger{}, nil
	}
	fileLogger, err := orchlog.NewFileLogger(cfg.Log.Path)
	if err != nil {
		log.Printf("Warning: failed to open diagnostic log %q: %v", cfg.Log.Path, err)
		return orchlog.NoopLogger{}, nil
	}
	log.Printf("Diagnostic log: %s", cfg.Log.Path)

	if level != "debug" {
		return fileLogger, fileLogger
	}
	return orchlog.NewMultiLogger(fileLogger, orchlog.NewSlogAdapter(slog.Default())), fileLogger
}

func closeEventLog(f *orchlog.FileLogger) {
	if f == nil {
		return
	}
	if err := f.Close(); err != nil {
		log.Printf("Warning: failed to close diagnostic log: %v", err)
	}
}

func buildSnapshotStore(f Flags) *persistence.SnapshotStore {
	dir := f.SnapshotDir
	if dir == "" {
		return nil
	}
	store := persistence.NewSnapshotStore(filepath.Join(dir, "runtime-snapshot.json"))
	if f.Reset {
		if err := store.Clear(); err != nil {
			log.Printf("Warning: failed to clear diagnostic snapshot: %v", err)
		}
	}
	return store
}

// pruneSchedules periodically sweeps the tracker for stale entries, at
// the interval named in config (defaulting to schedule.StaleAfter).
func pruneSchedules(ctx context.Context, tracker *schedule.Tracker, cfg *config.Config) {
	every := cfg.Schedule.PruneEvery.Duration()
	if every <= 0 {
		every = schedule.StaleAfter
	}
	staleAfter := cfg.Schedule.StaleAfter.Duration()
	if staleAfter <= 0 {
		staleAfter = schedule.StaleAfter
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned := tracker.Prune(staleAfter)
			if pruned > 0 {
				log.Printf("Pruned %d stale schedule(s)", pruned)
			}
		}
	}
}

// tapSchedulerEvents mirrors every scheduler_event bus message into
// the diagnostic log, verbatim: Kind and every remaining JSON field
// are carried through unexamined, so a new event kind needs no change
// here.
func tapSchedulerEvents(ctx context.Context, b *bus.Bus, l orchlog.Logger) {
	receiver := b.Subscribe(events.Topic)
	defer b.Unsubscribe(events.Topic, receiver)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-receiver:
			if !ok {
				return
			}
			var fields map[string]any
			if err := json.Unmarshal(msg.Payload, &fields); err != nil {
				continue
			}
			kind, _ := fields["event"].(string)
			deviceID, _ := fields["device_id"].(string)
			delete(fields, "event")
			delete(fields, "device_id")

			l.Log(orchlog.Event{
				Timestamp: time.Now(),
				Layer:     orchlog.LayerScheduler,
				Category:  orchlog.CategorySchedulerEvent,
				DeviceID:  deviceID,
				SchedulerEvent: &orchlog.SchedulerEventEntry{
					Kind:   kind,
					Fields: fields,
				},
			})
		}
	}
}

// startDiscovery advertises this orchestrator's presence and browses
// for peers, both only when an instance id is configured; without one
// it does neither. Both are purely informational: no code path in this
// process consults a peer to make a dispatch decision.
func startDiscovery(ctx context.Context, cfg *config.Config, routes *route.Table, registry *queue.Registry) (discovery.Advertiser, discovery.Browser) {
	if cfg.Discovery.InstanceID == "" {
		log.Println("No discovery.instance_id configured, skipping mDNS advertisement")
		return nil, nil
	}

	advConfig := discovery.DefaultAdvertiserConfig()
	advConfig.Interface = cfg.Discovery.Interface
	advertiser, err := discovery.NewMDNSAdvertiser(advConfig)
	if err != nil {
		log.Printf("Warning: failed to create mDNS advertiser: %v", err)
		return nil, nil
	}

	self := &discovery.SelfInfo{
		InstanceID:    cfg.Discovery.InstanceID,
		Version:       "1",
		// routes.Len() counts devices with a known route, not open
		// serial endpoints.
		EndpointCount: routes.Len(),
		QueuedCount:   totalQueued(registry),
		Port:          cfg.Discovery.Port,
	}
	if err := advertiser.Advertise(ctx, self); err != nil {
		log.Printf("Warning: failed to advertise presence: %v", err)
	}

	browserConfig := discovery.DefaultBrowserConfig()
	browserConfig.Interface = cfg.Discovery.Interface
	browser, err := discovery.NewMDNSBrowser(browserConfig)
	if err != nil {
		log.Printf("Warning: failed to create mDNS browser: %v", err)
		return advertiser, nil
	}

	peers, err := browser.BrowsePeers(ctx)
	if err != nil {
		log.Printf("Warning: failed to start peer browsing: %v", err)
		return advertiser, browser
	}
	go func() {
		for peer := range peers {
			log.Printf("Discovered peer orchestrator: %s (%s:%d)", peer.InstanceID, peer.Host, peer.Port)
		}
	}()

	return advertiser, browser
}

func totalQueued(registry *queue.Registry) int {
	total := 0
	for _, id := range registry.Devices() {
		total += registry.For(id).Len()
	}
	return total
}

func waitForShutdown(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}
}
