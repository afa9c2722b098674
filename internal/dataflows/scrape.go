package dataflows

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// maxArticleChars bounds fetched article bodies so a single story cannot
// dominate the assembled context.
const maxArticleChars = 2000

// CleanText strips HTML markup and entities from provider text and collapses
// whitespace runs.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	} else {
		s = html.UnescapeString(s)
	}

	return strings.Join(strings.Fields(s), " ")
}

// ArticleFetcher downloads news articles and extracts their readable text.
type ArticleFetcher struct {
	client *resty.Client
}

// NewArticleFetcher creates a new article fetcher
func NewArticleFetcher() *ArticleFetcher {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; FinancialAgent/1.0)")

	return &ArticleFetcher{client: client}
}

// FetchArticleText downloads url and returns its paragraph text, capped at
// maxArticleChars.
func (af *ArticleFetcher) FetchArticleText(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("article URL is empty")
	}

	resp, err := af.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("article fetch error %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return "", fmt.Errorf("failed to parse article HTML: %w", err)
	}

	var sb strings.Builder
	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return true
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
		return sb.Len() < maxArticleChars
	})

	text := strings.Join(strings.Fields(sb.String()), " ")
	if len(text) > maxArticleChars {
		text = text[:maxArticleChars]
	}
	if text == "" {
		return "", fmt.Errorf("no readable text found in article")
	}

	return text, nil
}
