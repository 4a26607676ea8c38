package domain

import "time"

// ImageType enumerates the categories an uploaded or generated image belongs to.
type ImageType string

const (
	ImageTypeSubject ImageType = "user_photo"
	ImageTypeGarment ImageType = "clothing_photo"
	ImageTypeResult  ImageType = "generated_result"
)

// Valid reports whether t is one of the known image types.
func (t ImageType) Valid() bool {
	switch t {
	case ImageTypeSubject, ImageTypeGarment, ImageTypeResult:
		return true
	default:
		return false
	}
}

// Uploadable reports whether clients may upload images of this type directly.
func (t ImageType) Uploadable() bool {
	return t == ImageTypeSubject || t == ImageTypeGarment
}

// Image is a stored picture owned by a user. Images are immutable once created.
type Image struct {
	ID         string    `json:"id"`
	UserID     string    `json:"-"`
	URL        string    `json:"url"`
	Type       ImageType `json:"image_type"`
	FileSize   int64     `json:"file_size"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	MIME       string    `json:"-"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ImageFilter narrows image listings.
type ImageFilter struct {
	UserID string
	Type   ImageType
	Page   PageRequest
}
