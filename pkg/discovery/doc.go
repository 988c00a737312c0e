// Package discovery implements mDNS/DNS-SD presence advertisement and
// peer browsing for the orchestrator.
//
// # Presence advertisement (_homestead-orch._tcp)
//
// A running orchestrator advertises itself on the LAN so an operator's
// laptop can find it without knowing its host. Instance name format: <orchestrator-id>. TXT records include:
// V (protocol version), EP (serial endpoint count), Q (total queued
// command count).
//
// # Peer browsing
//
// Browsing for other orchestrator instances on the same network is
// informational only: it is logged for operational visibility and
// never acted on. This repository implements no cluster coordination —
// two orchestrators on the same LAN do not negotiate ownership of a
// device, elect a leader, or share state.
package discovery
