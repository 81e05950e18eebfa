// Package models defines data structures for the scraper.
package models

import "time"

// Species is the animal category of a pet.
type Species string

const (
	SpeciesCat Species = "CAT"
	SpeciesDog Species = "DOG"
)

// Valid reports whether s is one of the known species.
func (s Species) Valid() bool {
	return s == SpeciesCat || s == SpeciesDog
}

// Gender of a pet.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Size band of a pet.
type Size string

const (
	SizeSmall   Size = "SMALL"
	SizeMedium  Size = "MEDIUM"
	SizeBig     Size = "BIG"
	SizeVeryBig Size = "VERY_BIG"
)

// Valid reports whether s is one of the four size bands.
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeBig, SizeVeryBig:
		return true
	default:
		return false
	}
}

// Pet is one adoptable animal extracted from a detail page. The JSON shape
// is what the downstream loaders post to the shelter API.
type Pet struct {
	Name          string   `json:"name"`
	Type          Species  `json:"type"`
	Breed         *string  `json:"breed"`
	Age           int      `json:"age"`
	Description   string   `json:"description"`
	Gender        Gender   `json:"gender"`
	Size          Size     `json:"size"`
	Vaccinated    bool     `json:"vaccinated"`
	Urgent        bool     `json:"urgent"`
	Sterilized    bool     `json:"sterilized"`
	KidFriendly   bool     `json:"kidFriendly"`
	MainImagePath string   `json:"mainImagePath"`
	ImagePaths    []string `json:"imagePaths"`

	SourceURL string `json:"-"`
}

// StopReason records why pagination ended.
type StopReason string

const (
	StopPageLimit     StopReason = "page_limit"
	StopNoNewLinks    StopReason = "no_new_links"
	StopListingFailed StopReason = "listing_failed"
	StopCancelled     StopReason = "cancelled"
	StopFatal         StopReason = "fatal"
)

// ScraperResult holds the overall result of a scraping operation.
// TotalCount is the number of pets handed to the pipeline.
type ScraperResult struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalCount      int
	SkippedCount    int
	ErrorCount      int
	FailedURLs      []string
	ErrorsByType    map[string]int
	SkipsByReason   map[string]int
	RetryCount      int
	RequestCount    int
	PageCount       int
	ImagesStored    int
	ImagesDuplicate int
	StopReason      StopReason
}
