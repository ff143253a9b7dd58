// Package events defines the messages the board publishes to realtime
// subscribers and the topics they are published on.
//
// The primary components are:
// - UpdateEvent: a task change, one of a closed set of kinds, built only
//   through the New* constructors so every kind carries its own payload
// - PresenceEvent: a user coming online or going offline in a workspace
// - Topic: the destination a message is published to
package events
