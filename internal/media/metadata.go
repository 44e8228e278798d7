package media

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// PageMetadata is what the scraper can recover from a video page.
type PageMetadata struct {
	Title        string
	ThumbnailURL string
}

// ScrapePageMetadata loads the video page in headless Chrome and reads the
// OpenGraph tags. Used as a best-effort thumbnail/title source for remote
// videos; callers must tolerate an error (no Chrome installed, page blocked).
func ScrapePageMetadata(ctx context.Context, url string) (*PageMetadata, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var meta PageMetadata
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`
			(() => {
				const og = (p) => {
					const el = document.querySelector('meta[property="og:' + p + '"]');
					return el ? el.content : "";
				};
				return { title: og("title") || document.title, thumbnail: og("image") };
			})()
		`, &struct {
			Title     *string `json:"title"`
			Thumbnail *string `json:"thumbnail"`
		}{&meta.Title, &meta.ThumbnailURL}, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape page metadata: %v", err)
	}
	return &meta, nil
}
