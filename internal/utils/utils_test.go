package utils

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(RenderMarkdown("**Great** film <script>alert(1)</script>\n\n![poster](https://img.example/p.jpg)"))

	assert.Contains(t, out, "<strong>Great</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `loading="lazy"`)
	assert.Contains(t, out, `referrerpolicy="no-referrer"`)
}

func TestRenderMarkdownEmbedsTrailer(t *testing.T) {
	out := string(RenderMarkdown("Trailer:\n\nhttps://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10\n\nThoughts?"))

	assert.Contains(t, out, "https://www.youtube.com/embed/dQw4w9WgXcQ")
	assert.Contains(t, out, "Thoughts?")
	assert.NotContains(t, out, "<html>")
}

func TestYouTubeID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc":         "dQw4w9WgXcQ",
		"https://m.youtube.com/shorts/abcDEF123_-":    "abcDEF123_-",
		"https://vimeo.com/12345678":                  "",
		`https://youtu.be/"><script>`:                 "",
		"https://example.com/watch?v=dQw4w9WgXcQ":     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, YouTubeID(in), in)
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "hello world", StripHTML("  <b>hello</b> <i>world</i> "))
	assert.Equal(t, "", StripHTML("<script></script>"))
	assert.Equal(t, "Tom & Jerry", StripHTML("Tom & Jerry"))
	assert.True(t, strings.HasPrefix(StripHTML("5 < 6"), "5"))
}

func TestFlexInt64(t *testing.T) {
	var body struct {
		A FlexInt64 `json:"a"`
		B FlexInt64 `json:"b"`
		C FlexInt64 `json:"c"`
		D FlexInt64 `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":7,"b":"12","c":null,"d":""}`), &body))
	assert.EqualValues(t, 7, body.A)
	assert.EqualValues(t, 12, body.B)
	assert.EqualValues(t, 0, body.C)
	assert.EqualValues(t, 0, body.D)

	var bad FlexInt64
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &bad))
}

func TestFlexString(t *testing.T) {
	var body struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":550,"b":" tt0137523 ","c":null}`), &body))
	assert.EqualValues(t, "550", body.A)
	assert.EqualValues(t, "tt0137523", body.B)
	assert.EqualValues(t, "", body.C)

	var bad FlexString
	assert.Error(t, json.Unmarshal([]byte(`{}`), &bad))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("not-a-hash", "hunter22"))
}
