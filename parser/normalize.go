// Package parser turns free text from shelter pages into the fixed pet
// vocabulary and validates finished records.
package parser

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aluiziolira/go-scrape-pets/models"
)

// Normalizer classifies text fragments against a Vocabulary. All methods
// are total: unrecognised input yields ok=false, never an error.
type Normalizer struct {
	vocab Vocabulary
}

// NewNormalizer builds a normalizer over vocab. Keywords are lower-cased
// with the same rules applied to input text.
func NewNormalizer(vocab Vocabulary) *Normalizer {
	lowerAll := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = lower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return &Normalizer{vocab: Vocabulary{
		MaleCat:      lowerAll(vocab.MaleCat),
		FemaleCat:    lowerAll(vocab.FemaleCat),
		MaleDog:      lowerAll(vocab.MaleDog),
		FemaleDog:    lowerAll(vocab.FemaleDog),
		VeryBig:      lowerAll(vocab.VeryBig),
		Big:          lowerAll(vocab.Big),
		Medium:       lowerAll(vocab.Medium),
		Small:        lowerAll(vocab.Small),
		GenderLabels: lowerAll(vocab.GenderLabels),
		SizeLabels:   lowerAll(vocab.SizeLabels),
		AgeLabels:    lowerAll(vocab.AgeLabels),
	}}
}

var defaultNormalizer = NewNormalizer(DefaultVocabulary())

// Vocabulary returns the lower-cased table the normalizer matches against.
func (n *Normalizer) Vocabulary() Vocabulary {
	return n.vocab
}

// SpeciesAndGender maps text such as "Kotka ruda" or "pies" to a species
// and gender. A male-dog marker only counts when no female-dog marker is
// present in the same text.
func (n *Normalizer) SpeciesAndGender(text string) (models.Species, models.Gender, bool) {
	t := lower(text)
	switch {
	case containsAny(t, n.vocab.MaleCat):
		return models.SpeciesCat, models.GenderMale, true
	case containsAny(t, n.vocab.FemaleCat):
		return models.SpeciesCat, models.GenderFemale, true
	case containsAny(t, n.vocab.MaleDog) && !containsAny(t, n.vocab.FemaleDog):
		return models.SpeciesDog, models.GenderMale, true
	case containsAny(t, n.vocab.FemaleDog):
		return models.SpeciesDog, models.GenderFemale, true
	}
	return "", "", false
}

// Size maps text to one of the four size bands, checking the extra-large
// qualifier before the plain bands.
func (n *Normalizer) Size(text string) (models.Size, bool) {
	t := lower(text)
	switch {
	case containsAny(t, n.vocab.VeryBig):
		return models.SizeVeryBig, true
	case containsAny(t, n.vocab.Big):
		return models.SizeBig, true
	case containsAny(t, n.vocab.Medium):
		return models.SizeMedium, true
	case containsAny(t, n.vocab.Small):
		return models.SizeSmall, true
	}
	return "", false
}

// NormalizeSpeciesAndGender classifies text with the default vocabulary.
func NormalizeSpeciesAndGender(text string) (models.Species, models.Gender, bool) {
	return defaultNormalizer.SpeciesAndGender(text)
}

// NormalizeSize classifies text with the default vocabulary.
func NormalizeSize(text string) (models.Size, bool) {
	return defaultNormalizer.Size(text)
}

// ParseAge returns the first run of decimal digits in text.
func ParseAge(text string) (int, bool) {
	start := strings.IndexFunc(text, isDigit)
	if start < 0 {
		return 0, false
	}
	age := 0
	for _, r := range text[start:] {
		if !isDigit(r) {
			break
		}
		age = age*10 + int(r-'0')
		if age > maxAge {
			return 0, false
		}
	}
	return age, true
}

// IsBareNumber reports whether text, once trimmed, is only decimal digits.
func IsBareNumber(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	return strings.IndexFunc(text, func(r rune) bool { return !isDigit(r) }) < 0
}

// maxAge keeps ParseAge from overflowing on digit runs that are clearly
// not ages (phone numbers, ids).
const maxAge = 1 << 20

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// lower uses Polish casing rules; a Caser is stateful so one is built per
// call.
func lower(s string) string {
	return cases.Lower(language.Polish).String(s)
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// Lower lower-cases s with the rules used for keyword matching.
func Lower(s string) string {
	return lower(s)
}
