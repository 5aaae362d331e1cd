// Package service wires the matching, classification, and arbitrage engines
// to storage, caching, and messaging. Each service owns one slice of the
// sync -> match -> scan pipeline; the app layer composes them per run mode.
package service

// Pub/sub channels carrying pipeline lifecycle events. The dashboard
// websocket hub subscribes to all of them.
const (
	ChannelSync          = "sync"
	ChannelMatches       = "matches"
	ChannelScans         = "scans"
	ChannelOpportunities = "opportunities"
)
