package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	eventConnectionEstablished = "pusher:connection_established"
	eventSubscribe             = "pusher:subscribe"
	eventUnsubscribe           = "pusher:unsubscribe"
	eventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	eventSubscriptionError     = "pusher:subscription_error"
	eventPing                  = "pusher:ping"
	eventPong                  = "pusher:pong"
	eventError                 = "pusher:error"

	writeWait               = 10 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultSubscribeTimeout = 5 * time.Second
)

type pusherFrame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type PusherConfig struct {
	// URL is the full app endpoint, e.g. wss://host:443/app/KEY?protocol=7.
	URL              string
	HandshakeTimeout time.Duration
	SubscribeTimeout time.Duration
}

// PusherClient speaks protocol 7 to Reverb or any Pusher-compatible server.
// It connects lazily on the first Subscribe and never reconnects on its own.
type PusherClient struct {
	cfg    PusherConfig
	log    *zap.Logger
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	socketID string
	subs     map[string]*subscription
	pending  map[string][]chan error
	closed   bool

	writeMu sync.Mutex
}

func NewPusherClient(cfg PusherConfig, log *zap.Logger) *PusherClient {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = defaultSubscribeTimeout
	}
	return &PusherClient{
		cfg:     cfg,
		log:     log,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		subs:    make(map[string]*subscription),
		pending: make(map[string][]chan error),
	}
}

// SocketID is the id the server assigned, empty while disconnected.
func (p *PusherClient) SocketID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.socketID
}

func (p *PusherClient) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked(ctx)
}

func (p *PusherClient) connectLocked(ctx context.Context) error {
	if p.closed {
		return ErrClosed
	}
	if p.conn != nil {
		return nil
	}

	conn, _, err := p.dialer.DialContext(ctx, p.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial broadcast server: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(p.cfg.HandshakeTimeout))
	var frame pusherFrame
	if err := conn.ReadJSON(&frame); err != nil {
		conn.Close()
		return fmt.Errorf("read handshake: %w", err)
	}
	switch frame.Event {
	case eventConnectionEstablished:
	case eventError:
		conn.Close()
		return pusherError(frame.Data)
	default:
		conn.Close()
		return fmt.Errorf("unexpected handshake event %q", frame.Event)
	}
	_ = conn.SetReadDeadline(time.Time{})

	var established struct {
		SocketID        string `json:"socket_id"`
		ActivityTimeout int    `json:"activity_timeout"`
	}
	_ = json.Unmarshal(unwrapData(frame.Data), &established)

	p.conn = conn
	p.socketID = established.SocketID
	p.log.Info("connected to broadcast server",
		zap.String("socket_id", established.SocketID),
		zap.Int("activity_timeout", established.ActivityTimeout),
	)

	go p.readLoop(conn)
	return nil
}

// Subscribe joins a public channel and waits for the server to confirm it.
// Concurrent calls for the same channel share one subscribe frame and get
// the same handle.
func (p *PusherClient) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	p.mu.Lock()
	if err := p.connectLocked(ctx); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	if sub, ok := p.subs[channel]; ok {
		p.mu.Unlock()
		return sub, nil
	}
	conn := p.conn
	ack := make(chan error, 1)
	waiters, inflight := p.pending[channel]
	p.pending[channel] = append(waiters, ack)
	p.mu.Unlock()

	if !inflight {
		if err := p.write(conn, eventSubscribe, channel); err != nil {
			p.resolve(channel, err)
		}
	}

	timer := time.NewTimer(p.cfg.SubscribeTimeout)
	defer timer.Stop()

	select {
	case err := <-ack:
		if err != nil {
			return nil, err
		}
	case <-timer.C:
		p.dropWaiter(channel, ack)
		return nil, ErrSubscribeTimeout
	case <-ctx.Done():
		p.dropWaiter(channel, ack)
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.conn != conn {
		p.mu.Unlock()
		return nil, ErrNotConnected
	}
	sub, ok := p.subs[channel]
	if !ok {
		sub = newSubscription(channel, nil)
		sub.release = func() error { return p.unsubscribe(sub) }
		p.subs[channel] = sub
	}
	p.mu.Unlock()

	if !ok {
		p.log.Info("subscribed to channel", zap.String("channel", channel))
	}
	return sub, nil
}

func (p *PusherClient) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	p.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	p.writeMu.Unlock()
	return conn.Close()
}

func (p *PusherClient) readLoop(conn *websocket.Conn) {
	for {
		var frame pusherFrame
		if err := conn.ReadJSON(&frame); err != nil {
			p.disconnected(conn, err)
			return
		}

		switch frame.Event {
		case eventPing:
			if err := p.writeFrame(conn, pusherFrame{Event: eventPong, Data: json.RawMessage(`{}`)}); err != nil {
				p.log.Warn("pong failed", zap.Error(err))
			}
		case eventPong:
		case eventSubscriptionSucceeded:
			p.resolve(frame.Channel, nil)
		case eventSubscriptionError:
			p.resolve(frame.Channel, pusherError(frame.Data))
		case eventError:
			p.log.Warn("broadcast server error", zap.Error(pusherError(frame.Data)))
		default:
			p.mu.Lock()
			sub := p.subs[frame.Channel]
			p.mu.Unlock()
			if sub == nil {
				continue
			}
			if !sub.dispatch(frame.Event, unwrapData(frame.Data)) {
				p.log.Debug("no handler for event",
					zap.String("channel", frame.Channel),
					zap.String("event", frame.Event),
				)
			}
		}
	}
}

func (p *PusherClient) disconnected(conn *websocket.Conn, err error) {
	p.mu.Lock()
	if p.conn == conn {
		p.conn = nil
		p.socketID = ""
	}
	pending := p.pending
	p.pending = make(map[string][]chan error)
	lost := p.subs
	p.subs = make(map[string]*subscription)
	closed := p.closed
	p.mu.Unlock()

	for _, waiters := range pending {
		for _, ch := range waiters {
			ch <- ErrNotConnected
		}
	}
	for _, sub := range lost {
		sub.end()
	}
	if !closed {
		p.log.Warn("broadcast connection lost", zap.Error(err), zap.Int("subscriptions", len(lost)))
	}
}

// resolve answers every caller waiting on channel.
func (p *PusherClient) resolve(channel string, err error) {
	p.mu.Lock()
	waiters := p.pending[channel]
	delete(p.pending, channel)
	p.mu.Unlock()
	for _, ch := range waiters {
		ch <- err
	}
}

func (p *PusherClient) dropWaiter(channel string, ack chan error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	waiters := p.pending[channel]
	for i, ch := range waiters {
		if ch == ack {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(p.pending, channel)
		return
	}
	p.pending[channel] = waiters
}

// unsubscribe releases sub if it is still the live handle for its channel.
func (p *PusherClient) unsubscribe(sub *subscription) error {
	p.mu.Lock()
	if p.subs[sub.channel] != sub {
		p.mu.Unlock()
		return nil
	}
	delete(p.subs, sub.channel)
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return nil
	}
	return p.write(conn, eventUnsubscribe, sub.channel)
}

func (p *PusherClient) write(conn *websocket.Conn, event, channel string) error {
	data, err := json.Marshal(map[string]string{"channel": channel})
	if err != nil {
		return err
	}
	return p.writeFrame(conn, pusherFrame{Event: event, Data: data})
}

func (p *PusherClient) writeFrame(conn *websocket.Conn, frame pusherFrame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s: %w", frame.Event, err)
	}
	return nil
}

func pusherError(data json.RawMessage) error {
	var body struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	if err := json.Unmarshal(unwrapData(data), &body); err != nil || body.Message == "" {
		return fmt.Errorf("pusher error: %s", string(data))
	}
	return fmt.Errorf("pusher error %d: %s", body.Code, body.Message)
}
