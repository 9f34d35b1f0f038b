package frame

import (
	"fmt"
	"strings"

	"github.com/hilthontt/studyroom/internal/domain"
)

const (
	FilePrefix     = "/file:"
	OutboundPrefix = "You:"
	NoticePrefix   = "/notice:"

	noticeFence    = "---"
	relaySeparator = ": "
)

type NotificationMode string

const (
	// NotificationSubstring treats any payload containing "entered" or "left"
	// as a join/leave announcement. It matches what the room server emits today
	// and misfires on chat text such as "I entered the wrong answer".
	NotificationSubstring NotificationMode = "substring"
	// NotificationEnvelope only accepts "/notice:" payloads or "---...---"
	// fenced payloads as announcements.
	NotificationEnvelope NotificationMode = "envelope"
)

func ParseNotificationMode(s string) (NotificationMode, error) {
	switch NotificationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", NotificationSubstring:
		return NotificationSubstring, nil
	case NotificationEnvelope:
		return NotificationEnvelope, nil
	default:
		return "", fmt.Errorf("unknown notification mode %q", s)
	}
}

type Options struct {
	Notifications NotificationMode
	// RelayedFileFrames also recognizes file frames relayed behind a speaker
	// prefix, e.g. "You: /file:9:a.pdf" or "bob: /file:9:a.pdf".
	RelayedFileFrames bool
}

// Classifier turns raw text frames into message events. It is pure and total:
// every payload maps to exactly one kind.
type Classifier struct {
	opts Options
}

func NewClassifier(opts Options) *Classifier {
	if opts.Notifications == "" {
		opts.Notifications = NotificationSubstring
	}
	return &Classifier{opts: opts}
}

func (c *Classifier) Classify(raw string) domain.MessageEvent {
	ev := domain.MessageEvent{RawText: raw}

	if ref, ok := c.fileReference(raw); ok {
		ev.Kind = domain.KindFileReference
		ev.File = &ref
		return ev
	}

	switch {
	case strings.HasPrefix(raw, OutboundPrefix):
		ev.Kind = domain.KindOutbound
	case c.isNotification(raw):
		ev.Kind = domain.KindNotification
	default:
		ev.Kind = domain.KindPlain
	}

	return ev
}

func (c *Classifier) fileReference(raw string) (domain.FileRef, bool) {
	if strings.HasPrefix(raw, FilePrefix) {
		return DecodeFileReference(raw)
	}

	if !c.opts.RelayedFileFrames {
		return domain.FileRef{}, false
	}

	_, body, found := strings.Cut(raw, relaySeparator)
	if !found || !strings.HasPrefix(body, FilePrefix) {
		return domain.FileRef{}, false
	}
	return DecodeFileReference(body)
}

func (c *Classifier) isNotification(raw string) bool {
	if c.opts.Notifications == NotificationEnvelope {
		if strings.HasPrefix(raw, NoticePrefix) {
			return true
		}
		trimmed := strings.TrimSpace(raw)
		return len(trimmed) > 2*len(noticeFence) &&
			strings.HasPrefix(trimmed, noticeFence) &&
			strings.HasSuffix(trimmed, noticeFence)
	}

	return strings.Contains(raw, "entered") || strings.Contains(raw, "left")
}
