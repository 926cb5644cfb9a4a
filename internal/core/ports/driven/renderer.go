package driven

import "context"

// PageRenderer rasterises the pages of a PDF.
type PageRenderer interface {
	// PageCount returns the number of pages in the PDF at path.
	PageCount(ctx context.Context, path string) (int, error)

	// RenderPage renders the 1-based page of the PDF at path as a PNG image
	// at the given resolution in dots per inch.
	RenderPage(ctx context.Context, path string, page, dpi int) ([]byte, error)
}
