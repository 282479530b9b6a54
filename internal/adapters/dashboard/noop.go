// Package dashboard holds the no-op ports.DashboardBroadcaster that
// satisfies the orchestrator's dependency when no HTML/JS dashboard hub
// is wired in. The dashboard itself is an external collaborator per
// spec §1 — only the typed interface lives in this repository.
package dashboard

import "github.com/199ocero/PolymarketBTC15mAssistant/internal/ports"

// Noop discards every broadcast. It is the default DashboardBroadcaster
// for deployments that don't run the HTML/JS dashboard process.
type Noop struct{}

var _ ports.DashboardBroadcaster = Noop{}

func (Noop) BroadcastState(ports.StatePayload) {}
func (Noop) BroadcastActivity(string, string)  {}
