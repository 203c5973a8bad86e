package things

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidThing is returned for a source document that cannot be stored.
var ErrInvalidThing = errors.New("invalid thing")

// Thing is the stored entity.
type Thing struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Owner     string    `gorm:"size:100" json:"owner"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ThingDTO is the incoming representation. ID 0 means a new thing.
type ThingDTO struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Owner    string `json:"owner"`
	Quantity int    `json:"quantity"`
}

// Validate checks the fields a Thing requires.
func (d ThingDTO) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidThing)
	}
	if len(d.Title) > 255 {
		return fmt.Errorf("%w: title exceeds 255 characters", ErrInvalidThing)
	}
	if len(d.Owner) > 100 {
		return fmt.Errorf("%w: owner exceeds 100 characters", ErrInvalidThing)
	}
	if d.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidThing)
	}
	return nil
}

// ValidateAll validates every document and reports the first failure by index.
func ValidateAll(dtos []ThingDTO) error {
	for i, d := range dtos {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}
