// Package audio plays mono 16-bit PCM on the system audio device using
// oto/v3. The device is opened on first playback.
package audio
