package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/homestead/orchestrator/pkg/bus"
	"github.com/homestead/orchestrator/pkg/connection"
	orchlog "github.com/homestead/orchestrator/pkg/log"
	"github.com/homestead/orchestrator/pkg/wire"
)

// runReader opens address under a connection.Manager and reads SSP
// lines until ctx is canceled. If the port closes unexpectedly (EOF,
// unplugged device, flaky BLE bridge), the connection.Manager reopens
// it with exponential backoff rather than abandoning the endpoint:
// scan() claims an address once, in m.known, so this reader is the
// only path back to a working connection for it. Lines that don't
// look like SSP at all are discarded silently; lines that look like
// SSP but fail to decode are logged and the reader keeps going.
func (m *Manager) runReader(ctx context.Context, address string, transport wire.Transport) {
	var ep *endpoint

	connectFn := func(ctx context.Context) error {
		port, err := m.opener.Open(address)
		if err != nil {
			return err
		}
		ep = m.registerEndpoint(address, transport, port)
		return nil
	}

	mgr := connection.NewManager(connectFn)
	mgr.OnConnected(func() {
		logf("listening on %s", address)
		go m.readLines(ctx, mgr, ep, address)
	})
	mgr.OnDisconnected(func() {
		m.unregisterEndpoint(address)
	})
	mgr.OnReconnecting(func(attempt int, delay time.Duration) {
		logf("reopening %s (attempt %d) in %s", address, attempt, delay)
	})

	if err := mgr.Connect(ctx); err != nil {
		logf("open %s: %v", address, err)
		mgr.Close()
		return
	}
	mgr.StartReconnectLoop()

	<-ctx.Done()
	mgr.Close()
}

// readLines scans SSP lines off ep's port until it closes, then
// reports the loss to mgr so its reconnect loop takes over.
func (m *Manager) readLines(ctx context.Context, mgr *connection.Manager, ep *endpoint, address string) {
	defer func() {
		_ = ep.port.Close()
		mgr.NotifyConnectionLost()
	}()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ep.port.Close()
		case <-stop:
		}
	}()

	scanner := bufio.NewScanner(ep.port)
	for scanner.Scan() {
		m.handleLine(ep, scanner.Text())
	}
	logf("endpoint %s closed", address)
}

func (m *Manager) handleLine(ep *endpoint, line string) {
	msg, err := wire.Parse(line, ep.transport)
	if err != nil {
		if errors.Is(err, wire.ErrNotSSP) {
			return
		}
		logf("malformed frame on %s: %v", ep.address, err)
		return
	}

	m.logFrame(orchlog.DirectionIn, ep.address, ep.transport, msg.Source.ID, []byte(line))
	m.routes.Observe(msg.Source.ID, ep.transport, ep.address)

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		logf("re-encode payload from %s: %v", msg.Source.ID, err)
		return
	}

	if m.bus != nil {
		m.bus.Publish(bus.NewMessage(msg.Topic, payload, msg.Source.ID))
	}
}
