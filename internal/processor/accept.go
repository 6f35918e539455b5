package processor

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/aliskhannn/jpg-converter/internal/model"
)

// acceptRule matches files by extension, declared content type or sniffed content.
type acceptRule struct {
	extensions   []string
	contentTypes []string
}

func (r acceptRule) match(src model.SourceFile) bool {
	ext := strings.ToLower(filepath.Ext(src.Name))
	for _, e := range r.extensions {
		if ext == e {
			return true
		}
	}

	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(src.ContentType, ";", 2)[0]))
	for _, ct := range r.contentTypes {
		if declared == ct {
			return true
		}
	}

	if len(src.Data) == 0 {
		return false
	}
	return sniff(src.Data, r.contentTypes...)
}

// sniff reports whether data looks like one of the given MIME types.
func sniff(data []byte, contentTypes ...string) bool {
	mt := mimetype.Detect(data)
	for _, ct := range contentTypes {
		if mt.Is(ct) {
			return true
		}
	}
	return false
}
