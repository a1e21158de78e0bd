package media

import (
	"mime"
	"strings"

	"github.com/liamg/magic"
)

// Media kinds stored on documents.
const (
	KindText  = "text"
	KindImage = "image"
	KindVideo = "video"
)

// Sniff classifies an upload from its leading bytes, falling back to the
// declared Content-Type when the signature is unknown. Returns the resolved
// content type and the document media kind.
func Sniff(data []byte, declared string) (contentType, kind string) {
	contentType = declared
	if ft, _ := magic.Lookup(data); ft != nil {
		if byExt := mime.TypeByExtension("." + ft.Extension); byExt != "" {
			contentType = byExt
		}
	}

	switch {
	case strings.HasPrefix(contentType, "video/"):
		kind = KindVideo
	case strings.HasPrefix(contentType, "image/"):
		kind = KindImage
	default:
		kind = KindText
	}
	return contentType, kind
}

// Allowed reports whether an upload content type is accepted at all: only
// images and videos may be attached to profiles, posts and messages.
func Allowed(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

func extensionFor(contentType string) string {
	if contentType == "" {
		return ""
	}

	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	}

	exts, _ := mime.ExtensionsByType(contentType)
	if len(exts) > 0 {
		return exts[0]
	}

	return ""
}
