// Package state keeps per-user conversation sessions for Telegram bots.
// Session values are typed by the caller, so a bot models its own states
// without string tags or untyped scratch maps.
package state
