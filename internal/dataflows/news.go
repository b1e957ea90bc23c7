package dataflows

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/go-resty/resty/v2"
)

const googleNewsRSS = "https://news.google.com"

// rss 结构体定义
type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Source      rssSource `xml:"source"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

// NewsClient searches the Google News RSS feed.
type NewsClient struct {
	client   *resty.Client
	cache    *Cache
	language string
	country  string
}

// NewNewsClient takes a locale such as "en-US" or "zh-CN". baseURL is empty in production.
func NewNewsClient(baseURL, locale string, timeout time.Duration, cache *Cache) *NewsClient {
	if baseURL == "" {
		baseURL = googleNewsRSS
	}
	lang, country := "en", "US"
	if parts := strings.SplitN(locale, "-", 2); len(parts) == 2 {
		lang, country = parts[0], strings.ToUpper(parts[1])
	}
	c := newRestClient(baseURL, restOptions{timeout: timeout, retries: 2})
	c.SetHeader("Accept", "application/rss+xml, application/xml")
	return &NewsClient{client: c, cache: cache, language: lang, country: country}
}

func (n *NewsClient) Search(ctx context.Context, query string, max int) ([]models.NewsItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if max <= 0 {
		max = 10
	}

	key := fmt.Sprintf("%s_%s_%s_%d", query, n.language, n.country, max)
	var cached []models.NewsItem
	if n.cache.Get("google_news", "rss", key, &cached) {
		return cached, nil
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    query,
			"hl":   n.language + "-" + n.country,
			"gl":   n.country,
			"ceid": n.country + ":" + n.language,
		}).
		Get("/rss/search")
	if err != nil {
		return nil, &SourceError{Source: "news", URL: n.client.BaseURL + "/rss/search?q=" + url.QueryEscape(query), Err: err}
	}
	if resp.IsError() {
		return nil, &SourceError{Source: "news", URL: n.client.BaseURL + "/rss/search", Status: resp.StatusCode()}
	}

	items, err := parseRSS(resp.Body(), max)
	if err != nil {
		return nil, &SourceError{Source: "news", URL: n.client.BaseURL + "/rss/search", Err: err}
	}
	_ = n.cache.Set("google_news", "rss", key, items)
	return items, nil
}

func parseRSS(body []byte, max int) ([]models.NewsItem, error) {
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}
	items := make([]models.NewsItem, 0, min(max, len(feed.Channel.Items)))
	for _, it := range feed.Channel.Items {
		if len(items) == max {
			break
		}
		items = append(items, models.NewsItem{
			Title:       strings.TrimSpace(it.Title),
			Link:        it.Link,
			Source:      strings.TrimSpace(it.Source.Text),
			Published:   it.PubDate,
			Description: stripHTML(it.Description),
		})
	}
	return items, nil
}

// stripHTML flattens the HTML fragment Google puts in <description> to plain text.
func stripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
