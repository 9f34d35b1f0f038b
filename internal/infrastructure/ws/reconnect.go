package ws

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
)

func (m *Manager) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if m.cfg.Reconnect.InitialInterval > 0 {
		b.InitialInterval = m.cfg.Reconnect.InitialInterval
	}
	if m.cfg.Reconnect.MaxInterval > 0 {
		b.MaxInterval = m.cfg.Reconnect.MaxInterval
	}
	return b
}

// reconnect re-dials the room of session after the server dropped it. It
// gives up when the selection changes, the manager is closed, or the retry
// budget runs out.
func (m *Manager) reconnect(ctx context.Context, session domain.Session) {
	opts := []backoff.RetryOption{backoff.WithBackOff(m.newBackOff())}
	if m.cfg.Reconnect.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(m.cfg.Reconnect.MaxElapsedTime))
	}
	if m.cfg.Reconnect.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(m.cfg.Reconnect.MaxAttempts))
	}

	attempt := 0
	conn, err := backoff.Retry(ctx, func() (*connWrapper, error) {
		attempt++

		dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		defer cancel()

		start := time.Now()
		c, err := m.dial(dialCtx, session.RoomID, session.ClientID)
		m.metrics.DialDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			m.logger.Warn(logging.Connection, logging.Reconnect, "reconnect attempt failed", map[logging.ExtraKey]any{
				logging.RoomID:       session.RoomID,
				logging.Attempt:      attempt,
				logging.ErrorMessage: err.Error(),
			})
			return nil, err
		}
		return c, nil
	}, opts...)

	m.mu.Lock()
	if ctx.Err() != nil || m.generation != session.Generation {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		m.metrics.Reconnects.WithLabelValues("abandoned").Inc()
		return
	}
	m.cancelPending = nil

	if err != nil {
		change := m.transitionLocked(domain.StateClosed, domain.CloseReasonDialFail, err)
		m.mu.Unlock()
		m.notifyState(change)

		m.metrics.Reconnects.WithLabelValues("failed").Inc()
		m.logger.Error(logging.Connection, logging.Reconnect, "giving up reconnecting", map[logging.ExtraKey]any{
			logging.RoomID:       session.RoomID,
			logging.Attempt:      attempt,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	m.conn = conn
	change := m.transitionLocked(domain.StateOpen, "", nil)
	go m.readPump(conn, session)
	m.mu.Unlock()
	m.notifyState(change)

	m.metrics.Reconnects.WithLabelValues("ok").Inc()
	m.logger.Info(logging.Connection, logging.Reconnect, "reconnected to room", map[logging.ExtraKey]any{
		logging.RoomID:  session.RoomID,
		logging.Attempt: attempt,
	})
}
