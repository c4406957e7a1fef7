// Package sentiment scores text polarity and maps it to a coarse label.
package sentiment

import (
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// Label is a sentiment bucket.
type Label string

// Sentiment buckets.
const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Threshold is the polarity magnitude a score must exceed to leave neutral.
const Threshold = 0.05

// Analyzer scores text polarity in [-1, 1].
type Analyzer interface {
	Polarity(text string) float64
}

// VaderAnalyzer scores text with the VADER lexicon.
type VaderAnalyzer struct {
	once sync.Once
	sia  *govader.SentimentIntensityAnalyzer
}

// NewVaderAnalyzer returns an analyzer that loads its lexicon on first use.
func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{}
}

// Polarity returns the VADER compound score of text.
func (a *VaderAnalyzer) Polarity(text string) float64 {
	a.once.Do(func() { a.sia = govader.NewSentimentIntensityAnalyzer() })
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return a.sia.PolarityScores(text).Compound
}

// Bucket maps a polarity score to its label. Exactly ±Threshold is neutral.
func Bucket(polarity float64) Label {
	switch {
	case polarity > Threshold:
		return Positive
	case polarity < -Threshold:
		return Negative
	default:
		return Neutral
	}
}

// Classify scores text with a and returns its label.
func Classify(a Analyzer, text string) Label {
	return Bucket(a.Polarity(text))
}

// Marker is the emoji appended to a reply for each label.
func (l Label) Marker() string {
	switch l {
	case Positive:
		return "😁"
	case Negative:
		return "🙂"
	default:
		return "😄"
	}
}
