package notification

import "zetta/internal/domain/interest"

const (
	WSEventInterestNew     = "interest.new"
	WSEventInterestUpdated = "interest.updated"
	WSEventUnreadCount     = "unread_count"
	WSEventToast           = "toast"
	WSEventSound           = "sound"
	WSEventPong            = "pong"
	WSEventError           = "error"
)

// WSClientMessage is what a browser may send on the notification socket.
type WSClientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// WSEvent is pushed to browsers.
type WSEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type UnreadPayload struct {
	Count int    `json:"count"`
	Badge string `json:"badge"`
}

type Toast struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type SoundPayload struct {
	URL    string  `json:"url"`
	Volume float64 `json:"volume"`
	// Restart tells the player to rewind before playing.
	Restart bool `json:"restart"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewInterestEvent(r interest.Record) *WSEvent {
	return &WSEvent{Type: WSEventInterestNew, Payload: r}
}

func NewUpdatedEvent(r interest.Record) *WSEvent {
	return &WSEvent{Type: WSEventInterestUpdated, Payload: r}
}

func NewUnreadEvent(n int) *WSEvent {
	return &WSEvent{Type: WSEventUnreadCount, Payload: UnreadPayload{Count: n, Badge: BadgeLabel(n)}}
}

func NewToastEvent(t Toast) *WSEvent {
	return &WSEvent{Type: WSEventToast, Payload: t}
}

func NewSoundEvent(a *SoundAsset) *WSEvent {
	return &WSEvent{Type: WSEventSound, Payload: SoundPayload{URL: a.URL, Volume: a.Volume, Restart: true}}
}

func NewPongEvent() *WSEvent {
	return &WSEvent{Type: WSEventPong}
}

func NewErrorEvent(code, message string) *WSEvent {
	return &WSEvent{Type: WSEventError, Payload: ErrorPayload{Code: code, Message: message}}
}
