package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/configs"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
	"github.com/hilthontt/studyroom/internal/infrastructure/metrics"
	"github.com/hilthontt/studyroom/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReadLimit      int64
	Reconnect      configs.ReconnectConfig
}

func NewConfig(upstream configs.UpstreamConfig, ws configs.WSConfig) Config {
	return Config{
		BaseURL:        upstream.WSBaseURL,
		ConnectTimeout: ws.ConnectTimeout,
		WriteTimeout:   ws.WriteTimeout,
		ReadLimit:      ws.ReadLimit,
		Reconnect:      ws.Reconnect,
	}
}

type Classifier interface {
	Classify(raw string) domain.MessageEvent
}

type (
	EventHandler func(roomID string, event domain.MessageEvent)
	StateHandler func(change domain.StateChange)
)

// Manager owns the single live room connection of this process. Selecting a
// room always tears down the previous connection and dials a new one; frames
// are classified and appended to the log of the room they were received for.
type Manager struct {
	cfg        Config
	dialer     *websocket.Dialer
	classifier Classifier
	messageLog domain.MessageLog
	logger     logging.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	mu         sync.Mutex
	state      domain.ConnectionState
	session    domain.Session
	generation uint64
	conn       *connWrapper
	// cancelPending aborts an in-flight dial or reconnect loop.
	cancelPending context.CancelFunc

	handlerMu sync.RWMutex
	onEvent   EventHandler
	onState   StateHandler
}

func NewManager(
	cfg Config,
	classifier Classifier,
	messageLog domain.MessageLog,
	logger logging.Logger,
	m *metrics.Metrics,
) *Manager {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	return &Manager{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		classifier: classifier,
		messageLog: messageLog,
		logger:     logger,
		metrics:    m,
		tracer:     tracing.GetTracer("roomlink/ws"),
		state:      domain.StateIdle,
	}
}

func (m *Manager) SetEventHandler(handler EventHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.onEvent = handler
}

func (m *Manager) SetStateHandler(handler StateHandler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.onState = handler
}

func (m *Manager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Session() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) ActiveRoom() string {
	return m.Session().RoomID
}

// SelectRoom closes whatever connection exists and connects to roomID as
// clientID. It returns once the connection is open, the dial failed, or a
// newer SelectRoom/Close superseded it. Re-selecting the current room still
// reconnects.
func (m *Manager) SelectRoom(ctx context.Context, roomID, clientID string) error {
	if roomID == "" || clientID == "" {
		return fmt.Errorf("%w: room and client ids are required", domain.ErrInvalidInput)
	}

	ctx, span := m.tracer.Start(ctx, "ws.SelectRoom", trace.WithAttributes(
		attribute.String("room.id", roomID),
		attribute.String("client.id", clientID),
	))
	defer span.End()

	m.mu.Lock()
	var changes []domain.StateChange
	previous, change, ok := m.teardownLocked(domain.CloseReasonSwitch)
	if ok {
		changes = append(changes, change)
	}
	m.generation++
	session := domain.Session{RoomID: roomID, ClientID: clientID, Generation: m.generation}
	m.session = session

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	m.cancelPending = cancel
	changes = append(changes, m.transitionLocked(domain.StateConnecting, "", nil))
	m.mu.Unlock()
	closeDetached(previous)
	m.notifyState(changes...)

	m.logger.Info(logging.Connection, logging.Switch, "connecting to room", map[logging.ExtraKey]any{
		logging.RoomID:     roomID,
		logging.ClientID:   clientID,
		logging.Generation: session.Generation,
	})

	start := time.Now()
	conn, err := m.dial(dialCtx, roomID, clientID)
	cancel()
	m.metrics.DialDuration.Observe(time.Since(start).Seconds())

	m.mu.Lock()
	if m.generation != session.Generation {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		span.SetStatus(codes.Error, "superseded")
		return domain.ErrSuperseded
	}
	m.cancelPending = nil

	if err != nil {
		change := m.transitionLocked(domain.StateClosed, domain.CloseReasonDialFail, err)
		m.mu.Unlock()
		m.notifyState(change)

		m.logger.Error(logging.Connection, logging.Dial, "failed to connect to room", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ClientID:     clientID,
			logging.ErrorMessage: err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return &domain.ConnectError{RoomID: roomID, ClientID: clientID, Err: err}
	}

	// The bucket exists before the first frame so an empty room reads as
	// "no messages" rather than "no data".
	if err := m.messageLog.EnsureRoom(ctx, roomID); err != nil {
		m.logger.Warn(logging.Frame, logging.Append, "failed to create room log", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
	}

	m.conn = conn
	change = m.transitionLocked(domain.StateOpen, "", nil)
	go m.readPump(conn, session)
	m.mu.Unlock()
	m.notifyState(change)

	m.logger.Info(logging.Connection, logging.Dial, "connected to room", map[logging.ExtraKey]any{
		logging.RoomID:     roomID,
		logging.ClientID:   clientID,
		logging.Generation: session.Generation,
	})

	return nil
}

// Send transmits text verbatim on the live connection. It does not touch the
// room log; the sender sees its own text only if the server echoes it.
func (m *Manager) Send(ctx context.Context, text string) error {
	return m.send(ctx, nil, text)
}

// SendFor is Send bound to the room selection the caller started under. It
// fails with ErrStaleSession once another room has been selected since.
func (m *Manager) SendFor(ctx context.Context, session domain.Session, text string) error {
	return m.send(ctx, &session, text)
}

func (m *Manager) send(ctx context.Context, expected *domain.Session, text string) error {
	_, span := m.tracer.Start(ctx, "ws.Send")
	defer span.End()

	m.mu.Lock()
	conn, state, session := m.conn, m.state, m.session
	m.mu.Unlock()

	// Not Open wins over a changed selection: Close also bumps the generation.
	if state != domain.StateOpen || conn == nil {
		m.metrics.FramesSent.WithLabelValues("not_ready").Inc()
		span.SetStatus(codes.Error, "not ready")
		return domain.ErrNotReady
	}
	if expected != nil && expected.Generation != session.Generation {
		m.metrics.FramesSent.WithLabelValues("stale").Inc()
		span.SetStatus(codes.Error, "stale session")
		return domain.ErrStaleSession
	}

	if err := conn.WriteText(text, m.cfg.WriteTimeout); err != nil {
		m.metrics.FramesSent.WithLabelValues("error").Inc()
		m.logger.Warn(logging.Connection, logging.Send, "failed to write frame", map[logging.ExtraKey]any{
			logging.RoomID:       session.RoomID,
			logging.ErrorMessage: err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return fmt.Errorf("failed to send frame: %w", err)
	}

	m.metrics.FramesSent.WithLabelValues("ok").Inc()
	return nil
}

// Close tears down the connection and any pending dial or reconnect. Safe to
// call repeatedly.
func (m *Manager) Close() error {
	m.mu.Lock()
	previous, change, changed := m.teardownLocked(domain.CloseReasonLocal)
	m.generation++
	m.session.Generation = m.generation
	if !changed && m.state != domain.StateClosed {
		change, changed = m.transitionLocked(domain.StateClosed, domain.CloseReasonLocal, nil), true
	}
	m.mu.Unlock()
	closeDetached(previous)

	if changed {
		m.notifyState(change)
		m.logger.Info(logging.Connection, logging.Close, "connection closed", map[logging.ExtraKey]any{
			logging.RoomID: change.Session.RoomID,
		})
	}
	return nil
}

// teardownLocked must be called with m.mu held. It detaches the live
// connection and returns it; the caller closes it after unlocking, since the
// close handshake can block on a stalled peer.
func (m *Manager) teardownLocked(reason domain.CloseReason) (*connWrapper, domain.StateChange, bool) {
	if m.cancelPending != nil {
		m.cancelPending()
		m.cancelPending = nil
	}
	detached := m.conn
	m.conn = nil

	if m.state == domain.StateConnecting || m.state == domain.StateOpen {
		return detached, m.transitionLocked(domain.StateClosed, reason, nil), true
	}
	return detached, domain.StateChange{}, false
}

func closeDetached(conn *connWrapper) {
	if conn != nil {
		_ = conn.Close()
	}
}

// transitionLocked must be called with m.mu held.
func (m *Manager) transitionLocked(to domain.ConnectionState, reason domain.CloseReason, err error) domain.StateChange {
	change := domain.StateChange{
		From:    m.state,
		To:      to,
		Session: m.session,
		Reason:  reason,
		Err:     err,
	}
	m.state = to

	m.metrics.StateTransitions.WithLabelValues(to.String()).Inc()
	m.metrics.ConnectionState.Set(float64(to))

	return change
}

func (m *Manager) notifyState(changes ...domain.StateChange) {
	m.handlerMu.RLock()
	handler := m.onState
	m.handlerMu.RUnlock()

	if handler == nil {
		return
	}
	for _, change := range changes {
		handler(change)
	}
}

func (m *Manager) dial(ctx context.Context, roomID, clientID string) (*connWrapper, error) {
	target, err := RoomURL(m.cfg.BaseURL, roomID, clientID)
	if err != nil {
		return nil, err
	}

	conn, resp, err := m.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to websocket: %w", err)
	}

	return newConnWrapper(conn, m.cfg.ReadLimit), nil
}

func (m *Manager) readPump(conn *connWrapper, session domain.Session) {
	for {
		text, err := conn.ReadText()
		if err != nil {
			m.handleReadError(conn, session, err)
			return
		}

		if !m.deliver(conn, session, text) {
			return
		}
	}
}

// deliver appends a frame to its room log while the connection that received
// it is still the live one. Frames from a superseded connection are dropped.
func (m *Manager) deliver(conn *connWrapper, session domain.Session, text string) bool {
	m.mu.Lock()
	if m.conn != conn || m.generation != session.Generation {
		m.mu.Unlock()
		m.metrics.FramesDropped.Inc()
		return false
	}

	event := m.classifier.Classify(text)
	err := m.messageLog.Append(context.Background(), session.RoomID, &event)
	m.mu.Unlock()

	if err != nil {
		m.logger.Error(logging.Frame, logging.Append, "failed to append event", map[logging.ExtraKey]any{
			logging.RoomID:       session.RoomID,
			logging.ErrorMessage: err.Error(),
		})
		return true
	}

	m.metrics.FramesReceived.WithLabelValues(event.Kind.String()).Inc()
	m.logger.Debug(logging.Frame, logging.Classify, "frame received", map[logging.ExtraKey]any{
		logging.RoomID: session.RoomID,
		logging.Kind:   event.Kind.String(),
	})

	m.handlerMu.RLock()
	handler := m.onEvent
	m.handlerMu.RUnlock()
	if handler != nil {
		handler(session.RoomID, event)
	}

	return true
}

func (m *Manager) handleReadError(conn *connWrapper, session domain.Session, err error) {
	m.mu.Lock()
	if m.conn != conn {
		// Torn down locally; the teardown already recorded the transition.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	changes := []domain.StateChange{m.transitionLocked(domain.StateClosed, domain.CloseReasonRemote, err)}

	var reconnectCtx context.Context
	if m.cfg.Reconnect.Enabled {
		var cancel context.CancelFunc
		reconnectCtx, cancel = context.WithCancel(context.Background())
		m.cancelPending = cancel
		changes = append(changes, m.transitionLocked(domain.StateConnecting, "", nil))
	}
	m.mu.Unlock()
	m.notifyState(changes...)

	extra := map[logging.ExtraKey]any{
		logging.RoomID:       session.RoomID,
		logging.ClientID:     session.ClientID,
		logging.ErrorMessage: err.Error(),
	}
	if isExpectedClose(err) {
		m.logger.Info(logging.Connection, logging.Close, "connection closed by server", extra)
	} else {
		m.logger.Error(logging.Connection, logging.Close, "connection dropped", extra)
	}

	if reconnectCtx != nil {
		go m.reconnect(reconnectCtx, session)
	}
}
