package imagegen

// Gemini model IDs that accept an image plus instruction and return an image.
//
// | Model Name             | API Model ID                | Use Case                      |
// |------------------------|-----------------------------|-------------------------------|
// | Gemini 2.5 Flash Image | gemini-2.5-flash-image      | Fast edits (default)          |
// | Gemini 3 Pro Image     | gemini-3-pro-image-preview  | Advanced image generation     |
const (
	// ModelGemini25FlashImage is the fast image-edit model.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelGemini3FlashPreview is the text model used to validate API keys.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"
)

// DefaultModel is the image model used when configuration does not name one.
const DefaultModel = ModelGemini25FlashImage
