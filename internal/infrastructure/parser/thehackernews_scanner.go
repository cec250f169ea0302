package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"SecFeed/internal/config"
	"SecFeed/internal/domain"
	"SecFeed/internal/scanner"
)

const (
	theHackerNewsName    = "thehackernews"
	theHackerNewsBaseURL = "https://thehackernews.com"
	defaultUserAgent     = "SecFeed/1.0"
	maxPageBytes         = 5 << 20
)

var (
	bodySelectors   = []string{"div.articlebody", "#articlebody", "article"}
	nextSelectors   = []string{"a.blog-pager-older-link-mobile", "a.blog-pager-older-link"}
	publishedExpr   = regexp.MustCompile(`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2}, \d{4}`)
	skippedElements = map[string]bool{"script": true, "style": true, "noscript": true, "iframe": true}
)

// TheHackerNewsScanner walks thehackernews.com search pages and article pages.
type TheHackerNewsScanner struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   *url.URL
	userAgent string
	timeout   time.Duration
}

var _ scanner.Scanner = (*TheHackerNewsScanner)(nil)

// NewTheHackerNewsScanner builds the scanner from the source config. Every
// request waits on a limiter spaced by FetchDelay.
func NewTheHackerNewsScanner(cfg config.SourceConfig, client *http.Client) (*TheHackerNewsScanner, error) {
	base := cfg.BaseURL
	if base == "" {
		base = theHackerNewsBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", base, err)
	}

	if client == nil {
		client = &http.Client{}
	}

	limit := rate.Inf
	if cfg.FetchDelay > 0 {
		limit = rate.Every(cfg.FetchDelay)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &TheHackerNewsScanner{
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		baseURL:   parsed,
		userAgent: ua,
		timeout:   timeout,
	}, nil
}

// Name identifies the strategy inside the registry.
func (s *TheHackerNewsScanner) Name() string {
	return theHackerNewsName
}

// Discover returns the article links of one search page and the older-posts link.
func (s *TheHackerNewsScanner) Discover(ctx context.Context, pageURL string) (scanner.Page, error) {
	doc, _, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return scanner.Page{}, err
	}
	return s.parseIndex(doc), nil
}

// Extract fetches one article and pulls out its title, body text and tags.
func (s *TheHackerNewsScanner) Extract(ctx context.Context, link string) (domain.Candidate, error) {
	doc, raw, err := s.fetchDocument(ctx, link)
	if err != nil {
		return domain.Candidate{}, err
	}

	candidate := parseArticle(doc, link)
	if candidate.FullText == "" {
		candidate.FullText = readableText(raw, link)
	}
	return candidate, nil
}

func (s *TheHackerNewsScanner) parseIndex(doc *goquery.Document) scanner.Page {
	var page scanner.Page
	seen := map[string]struct{}{}

	doc.Find("div.body-post.clear").Each(func(_ int, post *goquery.Selection) {
		href, ok := post.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		link := s.resolve(href)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		page.Links = append(page.Links, link)
	})

	for _, sel := range nextSelectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			page.Next = s.resolve(href)
			break
		}
	}

	return page
}

func (s *TheHackerNewsScanner) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return s.baseURL.ResolveReference(ref).String()
}

func (s *TheHackerNewsScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("wait for fetch slot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, raw, nil
}

func parseArticle(doc *goquery.Document, link string) domain.Candidate {
	candidate := domain.Candidate{Link: link}

	titleNode := doc.Find("h1").First()
	if titleNode.Length() == 0 {
		titleNode = doc.Find("title").First()
	}
	candidate.Title = strings.TrimSpace(titleNode.Text())

	for _, sel := range bodySelectors {
		node := doc.Find(sel).First()
		if node.Length() > 0 {
			candidate.FullText = nodeText(node)
			break
		}
	}

	if tags := doc.Find("span.p-tags").First(); tags.Length() > 0 {
		var parts []string
		for _, part := range strings.Split(tags.Text(), "/") {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			candidate.Category = parts[0]
		}
		if len(parts) > 1 {
			candidate.Subcategory = parts[1]
		}
		candidate.IsArticle = true
	}

	if img, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		candidate.ImageURL = strings.TrimSpace(img)
	}

	for _, sel := range []string{"div.postmeta", "span.author", "div.item-label"} {
		if m := publishedExpr.FindString(doc.Find(sel).First().Text()); m != "" {
			candidate.PublishedOn = m
			break
		}
	}

	return candidate
}

// nodeText joins the trimmed text nodes under sel with newlines.
func nodeText(sel *goquery.Selection) string {
	var lines []string
	for _, n := range sel.Nodes {
		lines = collectText(n, lines)
	}
	return strings.Join(lines, "\n")
}

func collectText(n *html.Node, lines []string) []string {
	if n.Type == html.ElementNode && skippedElements[n.Data] {
		return lines
	}
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			lines = append(lines, text)
		}
		return lines
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		lines = collectText(c, lines)
	}
	return lines
}

// readableText is the fallback for pages without a known body container.
func readableText(raw []byte, link string) string {
	pageURL, err := url.Parse(link)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}
