// Package heuristics holds the pure URL/domain risk checks shared by the
// link and QR agents.
package heuristics

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"
)

// Finding is one triggered heuristic for one URL.
type Finding struct {
	Code     string
	Text     string
	Evidence string
	Score    float64
}

// Heuristic codes. The QR agent reuses these verbatim so a shortener found
// inside a QR payload reads the same as one found in a body link.
const (
	CodeIPLiteral       = "URL_IP_LITERAL"
	CodeTyposquat       = "URL_TYPOSQUAT"
	CodePunycode        = "URL_PUNYCODE"
	CodeMixedScript     = "URL_MIXED_SCRIPT"
	CodeShortener       = "URL_SHORTENER"
	CodeSuspiciousTLD   = "URL_SUSPICIOUS_TLD"
	CodeSuspiciousParam = "URL_SUSPICIOUS_PARAM"
	CodeMalformed       = "URL_MALFORMED"
)

// Signal weights per heuristic. Per-URL signals are added and capped at 1.
const (
	scoreIPLiteral   = 0.8
	scoreMalformed   = 0.8
	scoreMixedScript = 0.5
	scoreShortener   = 0.45
	scorePunycode    = 0.35
	scoreBadTLD      = 0.3
	scoreBadParam    = 0.2
)

// DefaultTrustedDomains are registrable domains commonly impersonated by
// typosquatters. An exact match is trusted; a near miss is the signal.
var DefaultTrustedDomains = []string{
	"microsoft.com", "google.com", "paypal.com", "amazon.com",
	"apple.com", "facebook.com", "twitter.com", "linkedin.com",
	"github.com", "stackoverflow.com", "wikipedia.org", "youtube.com",
	"gmail.com", "outlook.com", "yahoo.com", "hotmail.com",
	"office.com", "live.com", "dropbox.com", "zoom.us",
}

// DefaultShortenerHosts are known URL-shortening services.
var DefaultShortenerHosts = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly",
	"short.link", "tiny.cc", "rebrand.ly", "clicky.me",
	"is.gd", "buff.ly", "cutt.ly", "soo.gd",
}

// DefaultSuspiciousTLDs see disproportionate abuse in phishing campaigns.
var DefaultSuspiciousTLDs = []string{
	"tk", "ml", "ga", "cf", "gq", "ru", "cn",
	"cc", "pw", "top", "click", "download",
}

// DefaultSuspiciousParams are query-parameter names associated with
// credential harvesting.
var DefaultSuspiciousParams = []string{
	"verify", "claim", "victim", "redirect", "goto", "token", "account",
}

// Set is an immutable bundle of the reference lists the checks run against.
type Set struct {
	trusted    []string
	shorteners map[string]struct{}
	badTLDs    map[string]struct{}
	badParams  []string
}

// NewSet builds a heuristic set; nil slices fall back to the defaults.
func NewSet(trusted, shorteners, suspiciousTLDs, suspiciousParams []string) *Set {
	if trusted == nil {
		trusted = DefaultTrustedDomains
	}
	if shorteners == nil {
		shorteners = DefaultShortenerHosts
	}
	if suspiciousTLDs == nil {
		suspiciousTLDs = DefaultSuspiciousTLDs
	}
	if suspiciousParams == nil {
		suspiciousParams = DefaultSuspiciousParams
	}

	s := &Set{
		trusted:    make([]string, 0, len(trusted)),
		shorteners: make(map[string]struct{}, len(shorteners)),
		badTLDs:    make(map[string]struct{}, len(suspiciousTLDs)),
		badParams:  make([]string, 0, len(suspiciousParams)),
	}
	for _, d := range trusted {
		s.trusted = append(s.trusted, strings.ToLower(strings.TrimSpace(d)))
	}
	for _, h := range shorteners {
		s.shorteners[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	for _, t := range suspiciousTLDs {
		s.badTLDs[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))] = struct{}{}
	}
	for _, p := range suspiciousParams {
		s.badParams = append(s.badParams, strings.ToLower(strings.TrimSpace(p)))
	}
	return s
}

// ParseHost extracts the lower-cased host from a raw URL, tolerating a
// missing scheme ("www.example.com/x").
func ParseHost(raw string) (string, error) {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	return host, nil
}

// RegistrableDomain reduces a host to its eTLD+1 ("a.b.paypal.com" →
// "paypal.com"). IP literals and unlisted suffixes come back unchanged.
func RegistrableDomain(host string) string {
	if IsIPLiteral(host) {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// IsIPLiteral reports whether host is a raw IPv4/IPv6 address.
func IsIPLiteral(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}

// TrustedExact reports whether the host's registrable domain is in the
// trusted set.
func (s *Set) TrustedExact(host string) bool {
	d := RegistrableDomain(host)
	for _, t := range s.trusted {
		if d == t {
			return true
		}
	}
	return false
}

// NearestTrusted returns the closest trusted domain to the host's
// registrable domain with its edit distance and normalized similarity.
func (s *Set) NearestTrusted(host string) (domain string, distance int, similarity float64) {
	d := RegistrableDomain(host)
	best := -1
	for _, t := range s.trusted {
		dist := levenshtein.ComputeDistance(d, t)
		if best < 0 || dist < best {
			best = dist
			domain = t
		}
	}
	if best < 0 {
		return "", 0, 0
	}
	maxLen := len(d)
	if len(domain) > maxLen {
		maxLen = len(domain)
	}
	if maxLen == 0 {
		return domain, best, 0
	}
	return domain, best, 1 - float64(best)/float64(maxLen)
}

// TyposquatScore converts a near-miss against the trusted set into a risk
// score proportional to closeness. Exact matches score zero.
func (s *Set) TyposquatScore(host string) (float64, string) {
	if s.TrustedExact(host) {
		return 0, ""
	}
	target, dist, sim := s.NearestTrusted(host)
	switch {
	case sim >= 0.8 && dist <= 3 && dist > 0:
		return 0.6, target
	case sim >= 0.7 && dist <= 2 && dist > 0:
		return 0.4, target
	case sim >= 0.6 && dist == 1:
		return 0.3, target
	}
	return 0, ""
}

// IsPunycode reports whether any label of the host carries an IDN prefix,
// and returns the decoded Unicode form when it differs.
func IsPunycode(host string) (bool, string) {
	if !strings.Contains(host, "xn--") {
		return false, ""
	}
	decoded, err := idna.Lookup.ToUnicode(host)
	if err != nil || decoded == host {
		return true, ""
	}
	return true, decoded
}

// HasMixedScript reports whether the host mixes Latin letters with
// confusable non-Latin scripts (the classic homoglyph disguise), after
// NFKC normalization.
func HasMixedScript(host string) bool {
	normalized := norm.NFKC.String(host)
	var latin, other bool
	for _, r := range normalized {
		if !unicode.IsLetter(r) {
			continue
		}
		switch {
		case r < 128:
			latin = true
		case unicode.Is(unicode.Cyrillic, r), unicode.Is(unicode.Greek, r), unicode.Is(unicode.Armenian, r):
			other = true
		}
	}
	return latin && other
}

// IsShortener reports whether the host is a known URL-shortening service.
func (s *Set) IsShortener(host string) bool {
	_, ok := s.shorteners[RegistrableDomain(host)]
	if !ok {
		_, ok = s.shorteners[host]
	}
	return ok
}

// HasSuspiciousTLD reports whether the host's public suffix is on the
// abuse-heavy list.
func (s *Set) HasSuspiciousTLD(host string) (bool, string) {
	suffix, _ := publicsuffix.PublicSuffix(host)
	if suffix == "" {
		if i := strings.LastIndex(host, "."); i >= 0 {
			suffix = host[i+1:]
		}
	}
	_, ok := s.badTLDs[suffix]
	return ok, suffix
}

// SuspiciousParams returns the query-parameter names on the harvesting list
// present in the URL.
func (s *Set) SuspiciousParams(raw string) []string {
	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return nil
	}
	q := u.Query()
	var hits []string
	for _, p := range s.badParams {
		if _, ok := q[p]; ok {
			hits = append(hits, p)
		}
	}
	return hits
}

// ScoreURL runs every offline heuristic against one URL and returns the
// capped per-URL score with one finding per triggered check. WHOIS-backed
// age checks are layered on by the link agent, which owns the network
// budget.
func (s *Set) ScoreURL(raw string) (float64, []Finding) {
	host, err := ParseHost(raw)
	if err != nil {
		return scoreMalformed, []Finding{{
			Code:     CodeMalformed,
			Text:     "URL could not be parsed",
			Evidence: raw,
			Score:    scoreMalformed,
		}}
	}

	var score float64
	var findings []Finding
	add := func(f Finding) {
		score += f.Score
		findings = append(findings, f)
	}

	if IsIPLiteral(host) {
		add(Finding{
			Code:     CodeIPLiteral,
			Text:     "URL addresses a raw IP instead of a domain",
			Evidence: raw,
			Score:    scoreIPLiteral,
		})
	}

	if ts, target := s.TyposquatScore(host); ts > 0 {
		add(Finding{
			Code:     CodeTyposquat,
			Text:     fmt.Sprintf("host resembles trusted domain %q", target),
			Evidence: raw,
			Score:    ts,
		})
	}

	if puny, decoded := IsPunycode(host); puny {
		text := "host uses punycode-encoded internationalized labels"
		if decoded != "" {
			text = fmt.Sprintf("punycode host decodes to %q", decoded)
		}
		add(Finding{Code: CodePunycode, Text: text, Evidence: raw, Score: scorePunycode})
	}

	if HasMixedScript(host) {
		add(Finding{
			Code:     CodeMixedScript,
			Text:     "host mixes Latin with confusable non-Latin characters",
			Evidence: raw,
			Score:    scoreMixedScript,
		})
	}

	if s.IsShortener(host) {
		add(Finding{
			Code:     CodeShortener,
			Text:     "URL goes through a shortening service that hides the destination",
			Evidence: raw,
			Score:    scoreShortener,
		})
	}

	if bad, tld := s.HasSuspiciousTLD(host); bad {
		add(Finding{
			Code:     CodeSuspiciousTLD,
			Text:     fmt.Sprintf("host uses abuse-prone TLD .%s", tld),
			Evidence: raw,
			Score:    scoreBadTLD,
		})
	}

	if params := s.SuspiciousParams(raw); len(params) > 0 {
		add(Finding{
			Code:     CodeSuspiciousParam,
			Text:     fmt.Sprintf("query carries harvesting-style parameters: %s", strings.Join(params, ", ")),
			Evidence: raw,
			Score:    scoreBadParam,
		})
	}

	if score > 1 {
		score = 1
	}
	return score, findings
}

// CombineWorstPlusBonus folds per-item scores into one: the worst item
// dominates and each additional item at or above suspiciousAt adds bonus,
// saturating at 1.
func CombineWorstPlusBonus(scores []float64, suspiciousAt, bonus float64) float64 {
	var worst float64
	suspicious := 0
	for _, sc := range scores {
		if sc > worst {
			worst = sc
		}
		if sc >= suspiciousAt {
			suspicious++
		}
	}
	combined := worst
	if suspicious > 1 {
		combined += float64(suspicious-1) * bonus
	}
	if combined > 1 {
		combined = 1
	}
	return combined
}
