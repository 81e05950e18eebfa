package parser

// Vocabulary is the lookup table of keyword fragments used to classify
// free text from the shelter pages. Each list holds substrings; a text
// matches a list when it contains any of them after lower-casing.
//
// Source pages are served with inconsistent encodings, so every list
// carries the correct spelling alongside the garbled forms seen in the
// wild (U+FFFD replacement, cp1250 and latin-1 mojibake, ASCII folding).
type Vocabulary struct {
	MaleCat   []string `mapstructure:"male_cat"`
	FemaleCat []string `mapstructure:"female_cat"`
	MaleDog   []string `mapstructure:"male_dog"`
	FemaleDog []string `mapstructure:"female_dog"`

	VeryBig []string `mapstructure:"very_big"`
	Big     []string `mapstructure:"big"`
	Medium  []string `mapstructure:"medium"`
	Small   []string `mapstructure:"small"`

	GenderLabels []string `mapstructure:"gender_labels"`
	SizeLabels   []string `mapstructure:"size_labels"`
	AgeLabels    []string `mapstructure:"age_labels"`
}

// DefaultVocabulary returns the keyword table for schronisko-lodz.pl.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		MaleCat:   []string{"kocur"},
		FemaleCat: []string{"kotka"},
		MaleDog:   []string{"pies"},
		FemaleDog: []string{"suk", "sucz"},

		// "bardzo duży" shares "duż" with the plain large band.
		VeryBig: []string{"bardzo"},
		Big:     []string{"duż", "du�", "duz", "duĺľ", "duå¼"},
		Medium:  []string{"śre", "sre", "�re", "ĺ›re", "å›re"},
		Small:   []string{"mał", "mal", "ma�", "maĺ‚", "maå‚"},

		GenderLabels: []string{"płe", "p�e", "plec", "pĺ‚e", "på‚e"},
		SizeLabels:   []string{"wielko"},
		AgeLabels:    []string{"wiek"},
	}
}

// Merge returns v with every non-empty list of override replacing the
// matching list.
func (v Vocabulary) Merge(override Vocabulary) Vocabulary {
	pick := func(base, o []string) []string {
		if len(o) > 0 {
			return o
		}
		return base
	}
	return Vocabulary{
		MaleCat:      pick(v.MaleCat, override.MaleCat),
		FemaleCat:    pick(v.FemaleCat, override.FemaleCat),
		MaleDog:      pick(v.MaleDog, override.MaleDog),
		FemaleDog:    pick(v.FemaleDog, override.FemaleDog),
		VeryBig:      pick(v.VeryBig, override.VeryBig),
		Big:          pick(v.Big, override.Big),
		Medium:       pick(v.Medium, override.Medium),
		Small:        pick(v.Small, override.Small),
		GenderLabels: pick(v.GenderLabels, override.GenderLabels),
		SizeLabels:   pick(v.SizeLabels, override.SizeLabels),
		AgeLabels:    pick(v.AgeLabels, override.AgeLabels),
	}
}
