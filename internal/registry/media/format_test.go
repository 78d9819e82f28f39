package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExtension_AllowedExtensionAcceptedAsIs(t *testing.T) {
	ext, err := ResolveExtension("vacation.mp4", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "mp4", ext)
}

func TestResolveExtension_CaseInsensitiveExtension(t *testing.T) {
	ext, err := ResolveExtension("CLIP.MOV", "")
	require.NoError(t, err)
	assert.Equal(t, "mov", ext)
}

func TestResolveExtension_DisallowedExtensionRemappedFromContentType(t *testing.T) {
	ext, err := ResolveExtension("clip.bin", "video/quicktime")
	require.NoError(t, err)
	assert.Equal(t, "mov", ext)
}

func TestResolveExtension_NoExtensionWithKnownVideoMIME(t *testing.T) {
	ext, err := ResolveExtension("clip", "video/quicktime")
	require.NoError(t, err)
	assert.Equal(t, "mov", ext)
}

func TestResolveExtension_ContentTypeParametersIgnored(t *testing.T) {
	ext, err := ResolveExtension("clip", "video/mp4; codecs=\"avc1\"")
	require.NoError(t, err)
	assert.Equal(t, "mp4", ext)
}

func TestResolveExtension_RejectsNonVideo(t *testing.T) {
	_, err := ResolveExtension("notes.txt", "text/plain")
	var formatErr *UnsupportedFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "notes.txt", formatErr.Filename)
}

func TestResolveExtension_RejectsNoExtensionNoContentType(t *testing.T) {
	_, err := ResolveExtension("clip", "")
	var formatErr *UnsupportedFormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestResolveExtension_DisallowedExtensionNonVideoContentTypeRejected(t *testing.T) {
	_, err := ResolveExtension("report.pdf", "application/pdf")
	var formatErr *UnsupportedFormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestContentTypeForExtension(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentTypeForExtension(".mp4"))
	assert.Equal(t, "video/quicktime", ContentTypeForExtension("MOV"))
	assert.Equal(t, "video/x-msvideo", ContentTypeForExtension("avi"))
	assert.Equal(t, "application/octet-stream", ContentTypeForExtension(".bin"))
	assert.Equal(t, "application/octet-stream", ContentTypeForExtension(""))
}
