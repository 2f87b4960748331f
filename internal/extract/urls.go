// Package extract pulls analyzable artifacts out of raw email bodies.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var textURLPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"'` + "`" + `]+`)

// URLs collects the distinct URLs referenced by an email: anchors, image
// and frame sources from the HTML body, plus bare URLs spelled out in
// either body. Order follows first appearance.
func URLs(bodyHTML, bodyText string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(raw string) {
		u := cleanURL(raw)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	if bodyHTML != "" {
		for _, u := range htmlURLs(bodyHTML) {
			add(u)
		}
	}
	for _, u := range textURLPattern.FindAllString(bodyHTML+" "+bodyText, -1) {
		add(u)
	}
	return out
}

// htmlURLs walks the HTML token stream for href/src attributes. A broken
// document yields whatever was parsed before the error; the tokenizer
// never fails hard on malformed markup.
func htmlURLs(bodyHTML string) []string {
	var out []string
	z := html.NewTokenizer(strings.NewReader(bodyHTML))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		tag := string(name)
		if tag != "a" && tag != "img" && tag != "iframe" && tag != "script" {
			continue
		}
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = z.TagAttr()
			k := string(key)
			if (tag == "a" && k == "href") || (tag != "a" && k == "src") {
				out = append(out, string(val))
			}
		}
	}
}

func cleanURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimRight(u, `.,;!?)]}>"'`)
	if strings.HasPrefix(u, "data:") || strings.HasPrefix(u, "mailto:") ||
		strings.HasPrefix(u, "tel:") || strings.HasPrefix(u, "#") {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(u), "www.") {
		u = "http://" + u
	}
	if len(u) < 11 || !strings.Contains(u, ".") {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(u), "http://") && !strings.HasPrefix(strings.ToLower(u), "https://") {
		return ""
	}
	return u
}

// SanitizeUTF8 replaces invalid byte sequences so downstream scorers always
// see well-formed text.
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "�")
}
