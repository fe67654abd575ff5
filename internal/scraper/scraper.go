// Package scraper extracts product data from external promotion pages.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/link4deal/commerce-api/internal/model"
)

type Scraper struct {
	client    *http.Client
	userAgent string
}

func New(timeout time.Duration, userAgent string) *Scraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// ScrapeProduct fetches the page and pulls title, description, price and
// primary image from Open Graph tags, falling back to common markup.
func (s *Scraper) ScrapeProduct(ctx context.Context, pageURL string) (*model.ScrapeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	result := &model.ScrapeResult{
		Title:       firstOf(metaContent(doc, "og:title"), doc.Find("title").First().Text()),
		Description: firstOf(metaContent(doc, "og:description"), metaName(doc, "description")),
		ImageURL:    metaContent(doc, "og:image"),
		Price:       extractPrice(doc),
	}
	result.Title = strings.TrimSpace(result.Title)
	result.Description = strings.TrimSpace(result.Description)

	if result.Title == "" {
		return nil, fmt.Errorf("page has no extractable title")
	}
	return result, nil
}

func extractPrice(doc *goquery.Document) string {
	candidates := []string{
		metaContent(doc, "product:price:amount"),
		metaContent(doc, "og:price:amount"),
		attrOf(doc, `[itemprop="price"]`, "content"),
	}
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	// Last resort: visible price node.
	return strings.TrimSpace(doc.Find(".price, .product-price").First().Text())
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return content
}

func metaName(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return content
}

func attrOf(doc *goquery.Document, selector, attr string) string {
	v, _ := doc.Find(selector).First().Attr(attr)
	return v
}

func firstOf(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
