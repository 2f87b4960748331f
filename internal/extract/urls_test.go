package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLsFromHTMLAttributes(t *testing.T) {
	html := `
		<html><body>
		<a href="https://example.com/login">sign in</a>
		<img src="http://tracker.example.net/pixel.png">
		<iframe src="https://frames.example.org/ad"></iframe>
		<a href="mailto:someone@example.com">mail</a>
		<a href="#section">anchor</a>
		</body></html>`

	urls := URLs(html, "")
	assert.Equal(t, []string{
		"https://example.com/login",
		"http://tracker.example.net/pixel.png",
		"https://frames.example.org/ad",
	}, urls)
}

func TestURLsFromPlainText(t *testing.T) {
	text := "Visit https://example.com/offer today. Also see www.example.org/deal, hurry!"
	urls := URLs("", text)
	assert.Equal(t, []string{
		"https://example.com/offer",
		"http://www.example.org/deal",
	}, urls)
}

func TestURLsDeduplicatesAcrossSources(t *testing.T) {
	html := `<a href="https://example.com/x">x</a>`
	text := "https://example.com/x and https://example.com/x"
	urls := URLs(html, text)
	assert.Equal(t, []string{"https://example.com/x"}, urls)
}

func TestURLsTrimsTrailingPunctuation(t *testing.T) {
	urls := URLs("", "see (https://example.com/page).")
	assert.Equal(t, []string{"https://example.com/page"}, urls)
}

func TestURLsEmptyBodies(t *testing.T) {
	assert.Empty(t, URLs("", ""))
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "hello", SanitizeUTF8("hello"))
	assert.Equal(t, "héllo", SanitizeUTF8("héllo"))

	broken := string([]byte{'a', 0xff, 'b'})
	got := SanitizeUTF8(broken)
	assert.Equal(t, "a�b", got)
}
