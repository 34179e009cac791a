package storage

import "context"

// RoutingFetcher sends blob URLs to the blob store and everything else over
// HTTP.
type RoutingFetcher struct {
	http FrameFetcher
	blob FrameFetcher
}

// NewRoutingFetcher creates a fetcher; blob may be nil when Azure is not
// configured, in which case blob URLs are fetched over plain HTTP.
func NewRoutingFetcher(http, blob FrameFetcher) *RoutingFetcher {
	return &RoutingFetcher{http: http, blob: blob}
}

func (r *RoutingFetcher) FetchFrame(ctx context.Context, frameURL string) ([]byte, error) {
	if r.blob != nil && IsBlobURL(frameURL) {
		return r.blob.FetchFrame(ctx, frameURL)
	}
	return r.http.FetchFrame(ctx, frameURL)
}
