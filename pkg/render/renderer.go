package render

import "context"

// PageRenderer turns a PDF payload into an ordered sequence of page images.
// Implementations must honour context cancellation between pages so a slow
// document cannot outlive the request deadline.
type PageRenderer interface {
	// Render returns one PNG-encoded image per page, in page order.
	Render(ctx context.Context, pdf []byte) ([][]byte, error)
}
