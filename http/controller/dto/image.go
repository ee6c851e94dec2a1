package dto

// ResizeParameter is one requested variant size. A nil dimension leaves
// that axis unconstrained; at least one must be given.
type ResizeParameter struct {
	Width  *int `json:"width"`
	Height *int `json:"height"`
}

type RenameImageRequest struct {
	Name string `json:"name" binding:"required"`
}

type SweepImagesRequest struct {
	Limit int `json:"limit"`
}
