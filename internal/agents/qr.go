package agents

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/core"
	"github.com/mailtriage/mailtriage/internal/heuristics"
)

// QR agent explanation codes. URL payloads reuse the shared heuristics
// codes so a shortener inside a QR code reads the same as one in the body.
const (
	CodeQRCryptoAddress = "QR_CRYPTO_ADDRESS"
	CodeQRUrgencyText   = "QR_URGENCY_TEXT"
)

const (
	scoreQRCrypto  = 0.5
	scoreQRUrgency = 0.3
)

var (
	cryptoAddressPattern = regexp.MustCompile(`\b(?:bc1[a-z0-9]{20,}|[13][a-km-zA-HJ-NP-Z1-9]{25,34}|0x[a-fA-F0-9]{40})\b`)
	urgencyWordPattern   = regexp.MustCompile(`(?i)\b(?:urgent|winner|prize|claim|reward|gift|free|expires?|act now)\b`)
)

// QRAgent decodes machine-readable codes out of attached images and scores
// their payloads. URL payloads go through the same heuristics as body
// links; free-text payloads are scanned for payment lures.
type QRAgent struct {
	logger  *zap.Logger
	decoder core.ImageDecoder
	set     *heuristics.Set
}

// NewQRAgent creates a QR agent around the given image decoder.
func NewQRAgent(decoder core.ImageDecoder, set *heuristics.Set, logger *zap.Logger) *QRAgent {
	return &QRAgent{logger: logger, decoder: decoder, set: set}
}

// Name implements core.Agent.
func (a *QRAgent) Name() string { return core.AgentQR }

// Analyze decodes every attached image and scores whatever payloads come
// out. Images that fail to decode are skipped silently; an undecodable
// image is not a risk signal.
func (a *QRAgent) Analyze(ctx context.Context, rec *core.EmailRecord) (*core.AgentResult, error) {
	if len(rec.Images) == 0 {
		return &core.AgentResult{
			AgentID:    core.AgentQR,
			Score:      0,
			Confidence: 1,
		}, nil
	}

	var payloads []string
	for _, img := range rec.Images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		payloads = append(payloads, a.decoder.DecodePayloads(ctx, img)...)
	}
	if len(payloads) == 0 {
		return &core.AgentResult{
			AgentID:    core.AgentQR,
			Score:      0,
			Confidence: 0.8,
		}, nil
	}

	confidence := 0.9
	scores := make([]float64, 0, len(payloads))
	var explanations []core.Explanation
	for _, p := range payloads {
		if isURLPayload(p) {
			score, findings := a.set.ScoreURL(p)
			for _, f := range findings {
				explanations = append(explanations, core.Explanation{
					Code:     f.Code,
					Text:     "QR payload: " + f.Text,
					Evidence: f.Evidence,
				})
			}
			scores = append(scores, score)
			continue
		}

		// Free-text payload: weaker signals, lower confidence overall.
		var score float64
		if m := cryptoAddressPattern.FindString(p); m != "" {
			score += scoreQRCrypto
			explanations = append(explanations, core.Explanation{
				Code:     CodeQRCryptoAddress,
				Text:     "QR payload carries a cryptocurrency address",
				Evidence: m,
			})
		}
		if m := urgencyWordPattern.FindString(p); m != "" {
			score += scoreQRUrgency
			explanations = append(explanations, core.Explanation{
				Code:     CodeQRUrgencyText,
				Text:     "QR payload uses reward or urgency language",
				Evidence: m,
			})
		}
		if score > 1 {
			score = 1
		}
		if score > 0 {
			confidence = 0.7
		}
		scores = append(scores, score)
	}

	return &core.AgentResult{
		AgentID:      core.AgentQR,
		Score:        heuristics.CombineWorstPlusBonus(scores, urlSuspiciousAt, urlBonus),
		Confidence:   confidence,
		Explanations: explanations,
	}, nil
}

func isURLPayload(p string) bool {
	lower := strings.ToLower(strings.TrimSpace(p))
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "www.")
}
