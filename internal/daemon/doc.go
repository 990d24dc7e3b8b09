// Package daemon ties telnotifyd together. The Dispatcher runs radio events
// through their handlers one at a time, driving indicator reconciliation,
// tones and banners. ConfigWatcher hot-reloads the daemon config and
// InternalNotifier reports daemon problems as desktop notifications.
package daemon
