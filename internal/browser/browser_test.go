package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinter(t *testing.T) {
	var got []string
	var o Opener = Printer{Print: func(url string) { got = append(got, url) }}

	require.NoError(t, o.Open("https://claude.ai/login"))
	assert.Equal(t, []string{"https://claude.ai/login"}, got)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Open("https://a.example"))
	require.NoError(t, r.Open("https://b.example"))

	urls := r.URLs()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)

	urls[0] = "mutated"
	assert.Equal(t, "https://a.example", r.URLs()[0])

	r.Err = errors.New("no display")
	assert.EqualError(t, r.Open("https://c.example"), "no display")
	assert.Len(t, r.URLs(), 2)
}
