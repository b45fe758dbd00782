package fetcher

import (
	"context"
	"io"
	"strings"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// HeadETag performs a HEAD request and returns the ETag header value.
	HeadETag(ctx context.Context, url string) (string, error)

	// DownloadIfChanged fetches the URL only if the ETag has changed.
	// Returns (body, newETag, changed, error). If not changed, body is nil and changed is false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}

// Downloader is the subset of Fetcher that bulk-file sync needs. The FEC
// publishes its bulk files over both HTTPS and anonymous FTP; only plain
// downloads are common to the two.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ForBaseURL selects a downloader for the given bulk base URL by scheme:
// ftp:// gets the FTP fetcher, everything else the HTTP fetcher.
func ForBaseURL(baseURL string) Downloader {
	if strings.HasPrefix(strings.ToLower(baseURL), "ftp://") {
		return NewFTPFetcher(FTPOptions{})
	}
	return NewHTTPFetcher(HTTPOptions{MaxRetries: 3})
}
