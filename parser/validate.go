package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-pets/models"
)

// MaxGalleryImages bounds the secondary images kept per pet.
const MaxGalleryImages = 4

// ValidatePet ensures a record satisfies the emitted-record invariant.
func ValidatePet(p *models.Pet) error {
	if p == nil {
		return fmt.Errorf("pet is nil")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("pet missing name")
	}
	if !p.Type.Valid() {
		return fmt.Errorf("pet %s has invalid type %q", p.Name, p.Type)
	}
	if !p.Gender.Valid() {
		return fmt.Errorf("pet %s has invalid gender %q", p.Name, p.Gender)
	}
	if !p.Size.Valid() {
		return fmt.Errorf("pet %s has invalid size %q", p.Name, p.Size)
	}
	if p.Age < 0 {
		return fmt.Errorf("pet %s has negative age", p.Name)
	}
	if strings.TrimSpace(p.MainImagePath) == "" {
		return fmt.Errorf("pet %s missing main image", p.Name)
	}
	if len(p.ImagePaths) > MaxGalleryImages {
		return fmt.Errorf("pet %s has %d gallery images, max %d", p.Name, len(p.ImagePaths), MaxGalleryImages)
	}
	return nil
}
