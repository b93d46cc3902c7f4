package detect

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extensionMIME maps filename extensions to the content type attached
// to the multipart file part. Unknown extensions fall back to sniffing
// the payload bytes.
var extensionMIME = map[string]string{
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
}

// ContentTypeFor resolves the MIME type for an upload from its filename
// extension, sniffing the payload when the extension is unrecognized.
func ContentTypeFor(filename string, payload []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := extensionMIME[ext]; ok {
		return ct
	}
	if len(payload) > 0 {
		return mimetype.Detect(payload).String()
	}
	return "application/octet-stream"
}
