package attachments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/frame"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
	"github.com/hilthontt/studyroom/internal/infrastructure/metrics"
	"github.com/hilthontt/studyroom/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Uploader interface {
	Upload(ctx context.Context, roomID, clientID string, att *domain.Attachment) (domain.FileRef, error)
}

type Connection interface {
	Session() domain.Session
	SendFor(ctx context.Context, session domain.Session, text string) error
}

type Correlator interface {
	// Share uploads att for the active room and announces it on the live
	// connection. When the announcement cannot be sent the uploaded FileRef is
	// still returned alongside the error.
	Share(ctx context.Context, att *domain.Attachment) (domain.FileRef, error)
}

type correlator struct {
	uploader Uploader
	conn     Connection
	logger   logging.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewCorrelator(uploader Uploader, conn Connection, logger logging.Logger, m *metrics.Metrics) Correlator {
	return &correlator{
		uploader: uploader,
		conn:     conn,
		logger:   logger,
		metrics:  m,
		tracer:   tracing.GetTracer("attachments"),
	}
}

func (c *correlator) Share(ctx context.Context, att *domain.Attachment) (domain.FileRef, error) {
	session := c.conn.Session()
	if session.RoomID == "" || session.ClientID == "" {
		return domain.FileRef{}, domain.ErrNoActiveRoom
	}
	if att == nil || att.Content == nil || att.Name == "" {
		return domain.FileRef{}, domain.ErrNoAttachment
	}

	ctx, span := c.tracer.Start(ctx, "attachments.Share", trace.WithAttributes(
		attribute.String("room.id", session.RoomID),
		attribute.String("file.name", att.Name),
	))
	defer span.End()

	started := time.Now()
	ref, err := c.uploader.Upload(ctx, session.RoomID, session.ClientID, att)
	c.metrics.UploadDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		c.metrics.Uploads.WithLabelValues("error").Inc()
		c.logger.Error(logging.Transfer, logging.Upload, "failed to upload attachment", map[logging.ExtraKey]any{
			logging.RoomID:       session.RoomID,
			logging.FileName:     att.Name,
			logging.ErrorMessage: err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")

		var uploadErr *domain.UploadError
		if errors.As(err, &uploadErr) || errors.Is(err, domain.ErrAttachmentTooLarge) {
			return domain.FileRef{}, err
		}
		return domain.FileRef{}, &domain.UploadError{Err: err}
	}
	c.metrics.Uploads.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.String("file.id", ref.ID))

	c.logger.Info(logging.Transfer, logging.Upload, "attachment uploaded", map[logging.ExtraKey]any{
		logging.RoomID:   session.RoomID,
		logging.FileID:   ref.ID,
		logging.FileName: ref.Name,
	})

	if err := c.conn.SendFor(ctx, session, frame.EncodeFileReference(ref)); err != nil {
		c.metrics.Announcements.WithLabelValues(announceResult(err)).Inc()
		c.logger.Warn(logging.Transfer, logging.Announce, "file reference not announced", map[logging.ExtraKey]any{
			logging.RoomID:       session.RoomID,
			logging.FileID:       ref.ID,
			logging.ErrorMessage: err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "announce failed")
		return ref, fmt.Errorf("announce file %s: %w", ref.ID, err)
	}
	c.metrics.Announcements.WithLabelValues("ok").Inc()

	return ref, nil
}

func announceResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotReady):
		return "not_ready"
	case errors.Is(err, domain.ErrStaleSession):
		return "stale"
	default:
		return "error"
	}
}
