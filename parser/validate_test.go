package parser

import (
	"testing"

	"github.com/aluiziolira/go-scrape-pets/models"
)

func validPet() *models.Pet {
	return &models.Pet{
		Name:          "Burek",
		Type:          models.SpeciesDog,
		Age:           3,
		Gender:        models.GenderMale,
		Size:          models.SizeMedium,
		MainImagePath: "images/abc/main.jpg",
		ImagePaths:    []string{},
	}
}

func TestValidatePet(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Pet)
		wantErr bool
	}{
		{name: "valid pet", mutate: func(*models.Pet) {}, wantErr: false},
		{name: "missing name", mutate: func(p *models.Pet) { p.Name = " " }, wantErr: true},
		{name: "invalid type", mutate: func(p *models.Pet) { p.Type = "RABBIT" }, wantErr: true},
		{name: "missing gender", mutate: func(p *models.Pet) { p.Gender = "" }, wantErr: true},
		{name: "missing size", mutate: func(p *models.Pet) { p.Size = "" }, wantErr: true},
		{name: "negative age", mutate: func(p *models.Pet) { p.Age = -1 }, wantErr: true},
		{name: "missing main image", mutate: func(p *models.Pet) { p.MainImagePath = "" }, wantErr: true},
		{
			name: "too many gallery images",
			mutate: func(p *models.Pet) {
				p.ImagePaths = []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pet := validPet()
			tt.mutate(pet)
			err := ValidatePet(pet)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePet() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := ValidatePet(nil); err == nil {
		t.Errorf("ValidatePet(nil) should fail")
	}
}
