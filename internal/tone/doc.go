// Package tone plays call progress and network signal tones.
// Each tone runs as its own task that owns an audio resource for its
// lifetime. The Manager keeps at most one task per class playing, and
// BeepProvider synthesises the cadences with the beep library.
package tone
