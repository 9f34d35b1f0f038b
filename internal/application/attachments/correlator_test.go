package attachments

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/frame"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
	"github.com/hilthontt/studyroom/internal/infrastructure/metrics"
	"github.com/hilthontt/studyroom/internal/infrastructure/repository"
	"github.com/hilthontt/studyroom/internal/infrastructure/transfer"
	"github.com/hilthontt/studyroom/internal/infrastructure/ws"
	"github.com/hilthontt/studyroom/internal/roomtest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	server     *roomtest.Server
	messageLog domain.MessageLog
	manager    *ws.Manager
	client     *transfer.Client
	metrics    *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	server := roomtest.NewServer()
	server.SetEcho(roomtest.EchoVerbatim)
	t.Cleanup(server.Close)

	m := metrics.New()
	messageLog := repository.NewMessageLog(100)
	manager := ws.NewManager(ws.Config{
		BaseURL:        server.WSBaseURL(),
		ConnectTimeout: time.Second,
		WriteTimeout:   time.Second,
	}, frame.NewClassifier(frame.Options{}), messageLog, logging.NewNop(), m)
	t.Cleanup(func() { _ = manager.Close() })

	client := transfer.NewClient(transfer.Config{BaseURL: server.URL, Timeout: 5 * time.Second}, nil)

	return &harness{server: server, messageLog: messageLog, manager: manager, client: client, metrics: m}
}

func (h *harness) correlator(uploader Uploader) Correlator {
	if uploader == nil {
		uploader = h.client
	}
	return NewCorrelator(uploader, h.manager, logging.NewNop(), h.metrics)
}

func (h *harness) events(t *testing.T, roomID string) []domain.MessageEvent {
	t.Helper()
	events, _, err := h.messageLog.Events(context.Background(), roomID)
	require.NoError(t, err)
	return events
}

func attachment(name, content string) *domain.Attachment {
	return domain.NewAttachment(name, int64(len(content)), strings.NewReader(content))
}

// uploaderFunc lets a test interleave work with the upload phase.
type uploaderFunc func(ctx context.Context, roomID, clientID string, att *domain.Attachment) (domain.FileRef, error)

func (f uploaderFunc) Upload(ctx context.Context, roomID, clientID string, att *domain.Attachment) (domain.FileRef, error) {
	return f(ctx, roomID, clientID, att)
}

func TestCorrelator_ShareAnnouncesThroughEcho(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.manager.SelectRoom(ctx, "42", "7"))

	ref, err := h.correlator(nil).Share(ctx, attachment("report:final.pdf", "pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, domain.FileRef{ID: "1", Name: "report:final.pdf"}, ref)

	require.Eventually(t, func() bool { return len(h.events(t, "42")) == 1 }, 2*time.Second, 10*time.Millisecond)
	event := h.events(t, "42")[0]
	assert.Equal(t, domain.KindFileReference, event.Kind)
	require.NotNil(t, event.File)
	assert.Equal(t, ref, *event.File)

	assert.Equal(t, []string{"/file:1:report:final.pdf"}, h.server.Received())
	uploads := h.server.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "42", uploads[0].RoomID)
	assert.Equal(t, "7", uploads[0].ClientID)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Uploads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Announcements.WithLabelValues("ok")))
}

func TestCorrelator_ShareWhileNotConnected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.manager.SelectRoom(ctx, "42", "7"))
	require.NoError(t, h.manager.Close())

	ref, err := h.correlator(nil).Share(ctx, attachment("notes.txt", "hi"))
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Equal(t, "notes.txt", ref.Name)
	assert.NotEmpty(t, ref.ID)

	assert.Len(t, h.server.Uploads(), 1)
	assert.Empty(t, h.server.Received())
	assert.Empty(t, h.events(t, "42"))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Announcements.WithLabelValues("not_ready")))
}

func TestCorrelator_ShareRequiresRoomAndAttachment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.correlator(nil).Share(ctx, attachment("a.txt", "x"))
	assert.ErrorIs(t, err, domain.ErrNoActiveRoom)

	require.NoError(t, h.manager.SelectRoom(ctx, "42", "7"))
	_, err = h.correlator(nil).Share(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrNoAttachment)

	assert.Empty(t, h.server.Uploads())
}

func TestCorrelator_UploadFailureLeavesConnectionOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.manager.SelectRoom(ctx, "42", "7"))
	h.server.SetUploadStatus(http.StatusBadGateway)

	ref, err := h.correlator(nil).Share(ctx, attachment("a.txt", "x"))
	var uploadErr *domain.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, http.StatusBadGateway, uploadErr.Status)
	assert.Empty(t, ref.ID)

	assert.Equal(t, domain.StateOpen, h.manager.State())
	assert.Empty(t, h.server.Received())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Uploads.WithLabelValues("error")))
}

func TestCorrelator_UploaderErrorsAreUploadErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.manager.SelectRoom(ctx, "42", "7"))

	failing := uploaderFunc(func(context.Context, string, string, *domain.Attachment) (domain.FileRef, error) {
		return domain.FileRef{}, errors.New("disk on fire")
	})

	_, err := h.correlator(failing).Share(ctx, attachment("a.txt", "x"))
	var uploadErr *domain.UploadError
	assert.ErrorAs(t, err, &uploadErr)
}

func TestCorrelator_RoomSwitchDuringUploadIsStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.manager.SelectRoom(ctx, "42", "7"))

	switching := uploaderFunc(func(ctx context.Context, roomID, clientID string, att *domain.Attachment) (domain.FileRef, error) {
		assert.Equal(t, "42", roomID)
		require.NoError(t, h.manager.SelectRoom(ctx, "43", clientID))
		return domain.FileRef{ID: "5", Name: att.Name}, nil
	})

	ref, err := h.correlator(switching).Share(ctx, attachment("a.txt", "x"))
	assert.ErrorIs(t, err, domain.ErrStaleSession)
	assert.Equal(t, domain.FileRef{ID: "5", Name: "a.txt"}, ref)

	assert.Equal(t, "43", h.manager.ActiveRoom())
	assert.Empty(t, h.server.Received())
	assert.Empty(t, h.events(t, "42"))
	assert.Empty(t, h.events(t, "43"))
}

func TestCorrelator_CloseDuringUploadIsNotReady(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.manager.SelectRoom(ctx, "42", "7"))

	closing := uploaderFunc(func(ctx context.Context, roomID, clientID string, att *domain.Attachment) (domain.FileRef, error) {
		require.NoError(t, h.manager.Close())
		return domain.FileRef{ID: "5", Name: att.Name}, nil
	})

	ref, err := h.correlator(closing).Share(ctx, attachment("a.txt", "x"))
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.NotErrorIs(t, err, domain.ErrStaleSession)
	assert.Equal(t, domain.FileRef{ID: "5", Name: "a.txt"}, ref)

	assert.Equal(t, domain.StateClosed, h.manager.State())
	assert.Empty(t, h.server.Received())
	assert.Empty(t, h.events(t, "42"))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Announcements.WithLabelValues("not_ready")))
}
