package domain

// Medicine is immutable once registered.
type Medicine struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BoxPhotoURL string `json:"box_photo_url"`
}
