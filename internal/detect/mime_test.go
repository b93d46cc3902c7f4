package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		filename string
		payload  []byte
		want     string
	}{
		{"clip.mp4", nil, "video/mp4"},
		{"CLIP.MP4", nil, "video/mp4"},
		{"face.png", nil, "image/png"},
		{"photo.jpeg", nil, "image/jpeg"},
		{"voice.wav", nil, "audio/wav"},
		{"song.m4a", nil, "audio/mp4"},
		{"mystery.bin", nil, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentTypeFor(tt.filename, tt.payload))
		})
	}
}

func TestContentTypeFor_SniffsUnknownExtension(t *testing.T) {
	pngMagic := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	assert.Equal(t, "image/png", ContentTypeFor("upload", pngMagic))
}
