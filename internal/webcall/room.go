// Package webcall drives a browser-style web call over a real-time media room.
//
// The media SDK sits behind Room; Call owns the state machine, the elapsed
// counter and remote audio attachment.
package webcall

import "context"

// ConnectionState is what the media room reports.
type ConnectionState string

const (
	RoomConnecting   ConnectionState = "connecting"
	RoomConnected    ConnectionState = "connected"
	RoomReconnecting ConnectionState = "reconnecting"
	RoomDisconnected ConnectionState = "disconnected"
)

type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// Track is a remote participant's published track.
type Track struct {
	SID         string
	Kind        TrackKind
	Participant string
}

// Listener receives room events. Implementations must be safe for calls from
// the media library's goroutines.
type Listener interface {
	OnConnectionStateChanged(ConnectionState)
	OnTrackSubscribed(Track)
	OnTrackUnsubscribed(Track)
}

// Room is the subset of a media room the call needs.
type Room interface {
	Connect(ctx context.Context, url, token string) error
	SetMicrophoneEnabled(ctx context.Context, enabled bool) error
	Disconnect() error
}

// RoomFactory builds a room that reports to l.
type RoomFactory func(l Listener) Room

// AudioSink plays remote audio.
type AudioSink interface {
	Attach(Track) error
	Detach(Track)
}
