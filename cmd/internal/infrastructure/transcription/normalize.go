package transcription

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"clinicalnotes/cmd/internal/domain/entity"
)

// segmentResponse is the segment shape shared by whisper-compatible APIs.
type segmentResponse struct {
	ID         *int     `json:"id"`
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	AvgLogprob *float64 `json:"avg_logprob"`
}

func normalizeSegments(raw []segmentResponse) ([]entity.Segment, error) {
	segments := make([]entity.Segment, 0, len(raw))
	prevStart, prevEnd := 0.0, 0.0

	for i, s := range raw {
		seg := entity.Segment{
			ID:         i,
			Start:      deref(s.Start),
			End:        deref(s.End),
			Text:       strings.TrimSpace(s.Text),
			Confidence: normalizeConfidence(s.Confidence, s.AvgLogprob),
		}
		if s.ID != nil {
			seg.ID = *s.ID
		}

		switch {
		case math.IsNaN(seg.Start) || math.IsNaN(seg.End):
			return nil, fmt.Errorf("segment %d has non-numeric timing", i)
		case seg.Start < 0 || seg.End < 0:
			return nil, fmt.Errorf("segment %d has negative timing", i)
		case seg.End < seg.Start:
			return nil, fmt.Errorf("segment %d ends before it starts", i)
		case seg.Start < prevStart:
			return nil, fmt.Errorf("segment %d starts before segment %d", i, i-1)
		case seg.End < prevEnd:
			return nil, fmt.Errorf("segment %d ends before segment %d", i, i-1)
		}

		prevStart, prevEnd = seg.Start, seg.End
		segments = append(segments, seg)
	}
	return segments, nil
}

// normalizeConfidence keeps a [0,1] score as is and converts a mean
// log-probability with exp. Anything else is dropped.
func normalizeConfidence(confidence, avgLogprob *float64) *float64 {
	if confidence != nil && *confidence >= 0 && *confidence <= 1 {
		c := *confidence
		return &c
	}

	if avgLogprob != nil && !math.IsNaN(*avgLogprob) {
		c := math.Exp(*avgLogprob)
		c = math.Max(0, math.Min(1, c))
		return &c
	}
	return nil
}

func buildMetadata(provider, model string, started time.Time, duration float64) map[string]any {
	return map[string]any{
		"provider":       provider,
		"processingTime": time.Since(started).Milliseconds(),
		"model":          model,
		"duration":       duration,
	}
}

func structuredData(raw []byte, keep bool) map[string]any {
	if !keep || !json.Valid(raw) {
		return map[string]any{}
	}
	return map[string]any{"raw": json.RawMessage(raw)}
}

var languageCodes = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"portuguese": "pt",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"dutch":      "nl",
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return defaultLanguage
	}

	if code, ok := languageCodes[lang]; ok {
		return code
	}
	return lang
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
