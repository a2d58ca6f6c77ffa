package downloader

import "context"

// Downloader fetches a remote media URL into a local file.
type Downloader interface {
	// Download saves the media at url into dir and returns the file path.
	Download(ctx context.Context, url, dir string) (string, error)
}
