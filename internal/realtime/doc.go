// Package realtime manages live client connections: the session table that
// maps each connection to its authenticated principal, topic subscriptions
// with their access checks, workspace presence, and the websocket transport
// that carries it all.
package realtime
