package frame

import (
	"strings"

	"github.com/hilthontt/studyroom/internal/domain"
)

// EncodeFileReference builds the control frame announcing an uploaded file.
func EncodeFileReference(ref domain.FileRef) string {
	return FilePrefix + ref.ID + ":" + ref.Name
}

// DecodeFileReference parses "/file:{id}:{name}". The name keeps any colons it
// contains. Frames missing the id or the name are rejected.
func DecodeFileReference(s string) (domain.FileRef, bool) {
	rest, ok := strings.CutPrefix(s, FilePrefix)
	if !ok {
		return domain.FileRef{}, false
	}

	id, name, found := strings.Cut(rest, ":")
	if !found || id == "" || name == "" {
		return domain.FileRef{}, false
	}

	return domain.FileRef{ID: id, Name: name}, true
}

// EncodeNotice builds a notification frame understood in envelope mode.
func EncodeNotice(text string) string {
	return NoticePrefix + text
}
