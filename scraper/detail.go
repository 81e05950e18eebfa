package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-pets/models"
	"github.com/aluiziolira/go-scrape-pets/parser"
	"github.com/aluiziolira/go-scrape-pets/storage"
)

// Skip reasons reported in logs and metrics.
const (
	skipMissingName  = "missing_name"
	skipIncomplete   = "incomplete"
	skipMissingImage = "missing_image"
	skipMainImage    = "main_image_failed"
)

// detailPage holds the fields read from a detail document before any
// image is downloaded.
type detailPage struct {
	name        string
	species     models.Species
	gender      models.Gender
	size        models.Size
	age         int
	description string
	mainImage   string
	gallery     []string
}

// ExtractPet fetches one detail page and builds a Pet from it, storing its
// images under a fresh item directory. A nil Pet with a nil error means
// the page did not describe a complete pet and was skipped. Transport
// errors are returned for the caller to log; a *storage.PersistenceError
// means the output tree is unusable.
func (s *Scraper) ExtractPet(ctx context.Context, detailURL string) (*models.Pet, error) {
	doc, err := s.fetchDocument(ctx, detailURL, phaseDetail)
	if err != nil {
		return nil, err
	}

	page, reason := s.readDetail(doc)
	if reason != "" {
		s.recordSkip(detailURL, reason)
		return nil, nil
	}

	gallery := page.gallery
	s.rng.Shuffle(len(gallery), func(i, j int) {
		gallery[i], gallery[j] = gallery[j], gallery[i]
	})
	if len(gallery) > s.cfg.GalleryLimit {
		gallery = gallery[:s.cfg.GalleryLimit]
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	dir := s.store.ItemDir(id.String())
	seen := storage.NewHashSet()

	mainPath, stored, err := s.storeImage(ctx, page.mainImage, dir, "main", seen)
	if isPersistence(err) {
		return nil, err
	}
	if err != nil || !stored {
		s.recordSkip(detailURL, skipMainImage)
		return nil, nil
	}

	paths := make([]string, 0, len(gallery))
	for _, imageURL := range gallery {
		p, stored, err := s.storeImage(ctx, imageURL, dir, strconv.Itoa(len(paths)+1), seen)
		if isPersistence(err) {
			return nil, err
		}
		if err != nil {
			slog.Debug("gallery image skipped", slog.String("url", imageURL), slog.Any("error", err))
			continue
		}
		if stored {
			paths = append(paths, p)
		}
	}

	return &models.Pet{
		Name:          page.name,
		Type:          page.species,
		Age:           page.age,
		Description:   page.description,
		Gender:        page.gender,
		Size:          page.size,
		Vaccinated:    s.rng.Chance(s.cfg.Flags.Vaccinated),
		Urgent:        s.rng.Chance(s.cfg.Flags.Urgent),
		Sterilized:    s.rng.Chance(s.cfg.Flags.Sterilized),
		KidFriendly:   s.rng.Chance(s.cfg.Flags.KidFriendly),
		MainImagePath: mainPath,
		ImagePaths:    paths,
		SourceURL:     detailURL,
	}, nil
}

// readDetail extracts and normalizes the text fields of a detail page.
// A non-empty reason means the page is not a usable pet.
func (s *Scraper) readDetail(doc *goquery.Document) (detailPage, string) {
	var page detailPage

	page.name = cleanText(doc.Find("h2 > strong").First().Text())
	if page.name == "" {
		return page, skipMissingName
	}

	vocab := s.normalizer.Vocabulary()
	genderRaw, haveGender := rowValue(doc, vocab.GenderLabels)
	sizeRaw, haveSize := rowValue(doc, vocab.SizeLabels)
	ageRaw, haveAge := rowValue(doc, vocab.AgeLabels)

	// Labels are not consistent across pages; classify every emphasized
	// fragment for whatever the rows did not give us.
	if !haveGender || !haveSize || !haveAge {
		doc.Find("strong").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			txt := cleanText(sel.Text())
			if !haveGender {
				if _, _, ok := s.normalizer.SpeciesAndGender(txt); ok {
					genderRaw, haveGender = txt, true
				}
			}
			if !haveSize {
				if _, ok := s.normalizer.Size(txt); ok {
					sizeRaw, haveSize = txt, true
				}
			}
			if !haveAge && parser.IsBareNumber(txt) {
				ageRaw, haveAge = txt, true
			}
			return !(haveGender && haveSize && haveAge)
		})
	}

	species, gender, okGender := s.normalizer.SpeciesAndGender(genderRaw)
	size, okSize := s.normalizer.Size(sizeRaw)
	age, okAge := parser.ParseAge(ageRaw)
	if !okGender || !okSize || !okAge {
		return page, skipIncomplete
	}
	page.species, page.gender, page.size, page.age = species, gender, size, age

	page.description = joinedText(doc.Find(".card-body").First())

	src, _ := doc.Find("div.col-md-5 img, div.col-lg-5 img").First().Attr("src")
	mainImage, ok := resolveURL(doc.Url, src)
	if !ok {
		return page, skipMissingImage
	}
	page.mainImage = mainImage.String()

	doc.Find(`a[data-lightbox="default-gallery"][href]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if u, ok := resolveURL(doc.Url, href); ok {
			page.gallery = append(page.gallery, u.String())
		}
	})

	return page, ""
}

// storeImage downloads imageURL and hands the bytes to the content store.
func (s *Scraper) storeImage(ctx context.Context, imageURL, dir, stem string, seen storage.HashSet) (string, bool, error) {
	resp, err := s.fetch(ctx, imageURL, phaseImage)
	if err != nil {
		return "", false, err
	}
	path, stored, err := s.store.Store(resp.Body, imageURL, dir, stem, seen)
	if err != nil {
		return "", false, err
	}
	if stored {
		atomic.AddInt64(&s.imagesStored, 1)
		s.Metrics.IncImage("stored")
	} else {
		atomic.AddInt64(&s.imagesDuplicate, 1)
		s.Metrics.IncImage("duplicate")
	}
	return path, stored, nil
}

func (s *Scraper) recordSkip(detailURL, reason string) {
	atomic.AddInt64(&s.skippedCount, 1)
	s.mu.Lock()
	s.skipsByReason[reason]++
	s.mu.Unlock()
	s.Metrics.IncPet(reason)
	slog.Info("pet processed", slog.String("outcome", "skipped"), slog.String("url", detailURL), slog.String("reason", reason))
}

func isPersistence(err error) bool {
	var perr *storage.PersistenceError
	return errors.As(err, &perr)
}
