package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/pkg/errs"
)

func TestParseKind(t *testing.T) {
	k, ok := ParseKind(" Image ")
	assert.True(t, ok)
	assert.Equal(t, KindImage, k)

	_, ok = ParseKind("video")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		kind Kind
		file string
		mime string
		size int64
		code int
	}{
		{"png", KindImage, "cat.PNG", "image/png", 1024, 0},
		{"webm with codec", KindAudio, "note.webm", "audio/webm;codecs=opus", 2048, 0},
		{"ext mismatch", KindImage, "cat.jpg", "image/png", 1024, errs.ErrFileTypeInvalid},
		{"audio as image", KindImage, "note.mp3", "audio/mpeg", 1024, errs.ErrFileTypeInvalid},
		{"no ext", KindImage, "cat", "image/png", 1024, errs.ErrFileTypeInvalid},
		{"empty", KindImage, "cat.png", "image/png", 0, errs.ErrInvalidParams},
		{"image too big", KindImage, "cat.png", "image/png", MaxImageSizeMB*1024*1024 + 1, errs.ErrFileSizeTooLarge},
		{"audio fits", KindAudio, "note.ogg", "audio/ogg", MaxAudioSizeMB * 1024 * 1024, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cerr := Validate(tc.kind, tc.file, tc.mime, tc.size)
			if tc.code == 0 {
				assert.Nil(t, cerr)
				return
			}
			require.NotNil(t, cerr)
			assert.Equal(t, tc.code, cerr.Code)
		})
	}
}

func TestValidateFileSize_MessageNamesLimit(t *testing.T) {
	cerr := ValidateFileSize(KindAudio, KindAudio.MaxSize()+1)
	require.NotNil(t, cerr)
	assert.Contains(t, cerr.Message, "10 MB")
}

func TestNewKeyAndOwnedBy(t *testing.T) {
	key := NewKey(KindAudio, "42", "voice.WEBM")

	assert.True(t, strings.HasPrefix(key, "audios/42/"))
	assert.True(t, strings.HasSuffix(key, ".webm"))
	assert.True(t, OwnedBy(key, "42"))
	assert.False(t, OwnedBy(key, "43"))
	assert.False(t, OwnedBy("other/42/x.png", "42"))
	assert.False(t, OwnedBy("images/42", "42"))
}

func TestParseKey(t *testing.T) {
	k, owner, ok := ParseKey("images/7/abc.png")
	require.True(t, ok)
	assert.Equal(t, KindImage, k)
	assert.Equal(t, "7", owner)

	for _, bad := range []string{"", "images/7/", "videos/7/a.mp4", "images//a.png", "a/b/c/d"} {
		_, _, ok := ParseKey(bad)
		assert.False(t, ok, bad)
	}
}
