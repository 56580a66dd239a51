package model

// ImageRequest is a validated scene description for image generation.
type ImageRequest struct {
	Location    string
	Weather     string
	Temperature float64
	// Settings is accepted from clients but not used when rendering the prompt.
	Settings map[string]any
}

// GeneratedScene is the /api/generate-image response. ImageURL is nil when the
// provider completed but returned no image.
type GeneratedScene struct {
	ImageURL *string `json:"image_url"`
	Prompt   string  `json:"prompt"`
	Message  string  `json:"message"`
}
