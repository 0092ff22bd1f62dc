package notification

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"zetta/internal/domain/interest"
	"zetta/internal/pkg/metrics"
)

// BadgeLabel is the text on the bell: nothing for zero, "99+" past 99.
func BadgeLabel(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}

// ToastFor builds the arrival toast.
func ToastFor(r interest.Record) Toast {
	return Toast{
		Title: r.FullName,
		Body:  "is interested in: " + r.Formation.Name,
	}
}

// Presenter turns store changes into browser pushes. It owns no feed state,
// only the role of the current session.
type Presenter struct {
	hub    *Hub
	sounds *SoundBank
	log    *zap.Logger

	mu   sync.RWMutex
	role string
}

func NewPresenter(hub *Hub, sounds *SoundBank, log *zap.Logger) *Presenter {
	return &Presenter{hub: hub, sounds: sounds, log: log}
}

func (p *Presenter) SetRole(role string) {
	p.mu.Lock()
	p.role = role
	p.mu.Unlock()
}

func (p *Presenter) Role() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.role
}

func (p *Presenter) Arrived(r interest.Record, sound bool) {
	p.hub.Broadcast(NewInterestEvent(r))
	p.hub.Broadcast(NewToastEvent(ToastFor(r)))
	if sound {
		p.playSound()
	}
}

func (p *Presenter) Updated(r interest.Record) {
	p.hub.Broadcast(NewUpdatedEvent(r))
}

func (p *Presenter) UnreadChanged(n int) {
	metrics.UnreadNotifications.Set(float64(n))
	p.hub.Broadcast(NewUnreadEvent(n))
}

// PrepareSound loads the current role's sound if it is not loaded yet.
func (p *Presenter) PrepareSound() {
	role := p.Role()
	if role == "" {
		return
	}
	if _, err := p.sounds.Load(role); err != nil {
		p.log.Warn("sound asset unavailable", zap.String("role", role), zap.Error(err))
	}
}

// playSound never fails outward: a missing asset or nobody listening is
// logged and counted.
func (p *Presenter) playSound() {
	role := p.Role()
	if role == "" {
		return
	}

	asset, err := p.sounds.Load(role)
	if err != nil {
		metrics.SoundPlayFailures.WithLabelValues(role).Inc()
		p.log.Warn("notification sound not played", zap.String("role", role), zap.Error(err))
		return
	}

	if p.hub.SendToRole(role, NewSoundEvent(asset)) == 0 {
		metrics.SoundPlayFailures.WithLabelValues(role).Inc()
		p.log.Debug("no listener for notification sound", zap.String("role", role))
	}
}
