package storage

import (
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"
)

func header(name, contentType string, size int64) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &multipart.FileHeader{Filename: name, Header: h, Size: size}
}

func TestValidateAvatar(t *testing.T) {
	require.NoError(t, ValidateAvatar(header("me.png", "image/png", 1024)))
	require.NoError(t, ValidateAvatar(header("me.JPG", "", 1024)))
	require.ErrorIs(t, ValidateAvatar(header("cv.pdf", "application/pdf", 1024)), ErrAvatarType)
	require.ErrorIs(t, ValidateAvatar(header("me.bin", "", 1024)), ErrAvatarType)
	require.ErrorIs(t, ValidateAvatar(header("big.png", "image/png", MaxAvatarSize+1)), ErrAvatarTooLarge)
}

func TestGetPublicURL(t *testing.T) {
	s := &MinIOStorage{bucket: "parksafe-avatars", endpoint: "localhost:9000"}
	require.Equal(t, "http://localhost:9000/parksafe-avatars/avatars/a.png", s.GetPublicURL("avatars/a.png"))

	s.publicURL = "https://cdn.parksafe.app/"
	require.Equal(t, "https://cdn.parksafe.app/parksafe-avatars/avatars/a.png", s.GetPublicURL("avatars/a.png"))
}
