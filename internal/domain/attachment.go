package domain

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// Attachment is a locally selected file waiting to be shared into a room.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

func NewAttachment(name string, size int64, content io.Reader) *Attachment {
	return &Attachment{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Size:        size,
		Content:     content,
	}
}

// OpenAttachment opens path for sharing. The caller closes the attachment.
func OpenAttachment(path string) (*Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat attachment: %w", err)
	}

	return NewAttachment(filepath.Base(path), info.Size(), f), nil
}

func (a *Attachment) Close() error {
	if c, ok := a.Content.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
