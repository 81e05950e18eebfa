package parser

import (
	"testing"

	"github.com/aluiziolira/go-scrape-pets/models"
)

func TestNormalizeSpeciesAndGender(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantSpecies models.Species
		wantGender  models.Gender
		wantOK      bool
	}{
		{name: "male cat", input: "Kocur", wantSpecies: models.SpeciesCat, wantGender: models.GenderMale, wantOK: true},
		{name: "female cat", input: "Kotka ruda", wantSpecies: models.SpeciesCat, wantGender: models.GenderFemale, wantOK: true},
		{name: "male dog", input: "Pies", wantSpecies: models.SpeciesDog, wantGender: models.GenderMale, wantOK: true},
		{name: "female dog", input: "Suka", wantSpecies: models.SpeciesDog, wantGender: models.GenderFemale, wantOK: true},
		{name: "female dog diminutive", input: "suczka", wantSpecies: models.SpeciesDog, wantGender: models.GenderFemale, wantOK: true},
		{name: "both dog markers", input: "pies / suka", wantSpecies: models.SpeciesDog, wantGender: models.GenderFemale, wantOK: true},
		{name: "upper case", input: "KOCUR", wantSpecies: models.SpeciesCat, wantGender: models.GenderMale, wantOK: true},
		{name: "unknown", input: "królik", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			species, gender, ok := NormalizeSpeciesAndGender(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeSpeciesAndGender(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if species != tt.wantSpecies || gender != tt.wantGender {
				t.Fatalf("NormalizeSpeciesAndGender(%q) = (%q, %q), want (%q, %q)", tt.input, species, gender, tt.wantSpecies, tt.wantGender)
			}
		})
	}
}

func TestNormalizeSize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   models.Size
		wantOK bool
	}{
		{name: "very big", input: "Bardzo duży", want: models.SizeVeryBig, wantOK: true},
		{name: "big", input: "Duży", want: models.SizeBig, wantOK: true},
		{name: "big replacement char", input: "du�y", want: models.SizeBig, wantOK: true},
		{name: "big cp1250 mojibake", input: "DuĹĽy", want: models.SizeBig, wantOK: true},
		{name: "medium", input: "Średni", want: models.SizeMedium, wantOK: true},
		{name: "medium ascii", input: "sredni", want: models.SizeMedium, wantOK: true},
		{name: "medium replacement char", input: "�redni", want: models.SizeMedium, wantOK: true},
		{name: "small", input: "Mały", want: models.SizeSmall, wantOK: true},
		{name: "small replacement char", input: "ma�y", want: models.SizeSmall, wantOK: true},
		{name: "small ascii", input: "maly", want: models.SizeSmall, wantOK: true},
		{name: "unknown", input: "nieznana", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeSize(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("NormalizeSize(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{name: "approximate", input: "ok. 3 lata", want: 3, wantOK: true},
		{name: "bare number", input: "12", want: 12, wantOK: true},
		{name: "first run wins", input: "2 lata 5 miesięcy", want: 2, wantOK: true},
		{name: "zero", input: "0", want: 0, wantOK: true},
		{name: "unknown", input: "nieznany", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "overflow", input: "99999999999999999999", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAge(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ParseAge(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsBareNumber(t *testing.T) {
	cases := map[string]bool{
		"3":          true,
		" 14 ":       true,
		"ok. 3 lata": false,
		"":           false,
		"Reksio":     false,
	}
	for input, want := range cases {
		if got := IsBareNumber(input); got != want {
			t.Errorf("IsBareNumber(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNormalizerCustomVocabulary(t *testing.T) {
	vocab := DefaultVocabulary().Merge(Vocabulary{
		Small: []string{"Tiny"},
	})
	n := NewNormalizer(vocab)

	if got, ok := n.Size("tiny pup"); !ok || got != models.SizeSmall {
		t.Fatalf("Size(tiny pup) = (%q, %v), want SMALL", got, ok)
	}
	if _, ok := n.Size("mały"); ok {
		t.Fatalf("overridden small list should no longer match the default marker")
	}
	if got, ok := n.Size("duży"); !ok || got != models.SizeBig {
		t.Fatalf("untouched lists should keep defaults, got (%q, %v)", got, ok)
	}
}
