package driven

import "context"

// OCREngine recognises text in page images.
// Implementations must be safe for concurrent use.
type OCREngine interface {
	// Recognise returns the text found in a PNG image.
	// languages lists the recognition languages, e.g. ["eng", "fra"].
	Recognise(ctx context.Context, image []byte, languages []string) (string, error)

	// Close releases engine resources.
	Close() error
}
