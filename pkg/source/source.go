// Package source turns files, HTML pages and URLs into plain text for analysis.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

// Source types recorded alongside stored analyses.
const (
	TypeText    = "text"
	TypeFile    = "file"
	TypeHTML    = "html_file"
	TypeArticle = "website_article"
)

// Document is a piece of text plus where it came from.
type Document struct {
	Name     string // basename used for output files
	Type     string
	Title    string
	Byline   string
	SiteName string
	URL      string
	Path     string
	Text     string
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>).
// Readability keeps furigana as text, so "漢字" would otherwise come out as
// "漢字かんじ" and the readings would be counted as words.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

// FromText wraps literal text.
func FromText(name, text string) Document {
	return Document{Name: name, Type: TypeText, Text: text}
}

// FromHTML extracts the main article text of an HTML page.
func FromHTML(r io.Reader, pageURL *url.URL) (Document, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read html: %w", err)
	}
	body = SanitizeRuby(body)

	if pageURL == nil {
		pageURL = &url.URL{Scheme: "http", Host: "localhost"}
	}
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("extract article: %w", err)
	}
	return Document{
		Type:     TypeArticle,
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		URL:      pageURL.String(),
		Text:     article.TextContent,
	}, nil
}

// ReadFile loads a text or HTML file. Files ending in .html or .htm go
// through article extraction.
func ReadFile(path string) (Document, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".html" || ext == ".htm" {
		f, err := os.Open(path)
		if err != nil {
			return Document{}, err
		}
		defer f.Close()

		doc, err := FromHTML(f, &url.URL{Scheme: "file", Path: path})
		if err != nil {
			return Document{}, fmt.Errorf("%s: %w", path, err)
		}
		doc.Name, doc.Type, doc.Path = name, TypeHTML, path
		return doc, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	if !utf8.Valid(b) {
		return Document{}, fmt.Errorf("%s: file is not valid UTF-8", path)
	}
	// Strip a UTF-8 BOM so it is not tokenized as a symbol.
	text := strings.TrimPrefix(string(b), "\ufeff")
	return Document{Name: name, Type: TypeFile, Path: path, Text: text}, nil
}

// DefaultMaxBody is the largest page body Fetch accepts.
const DefaultMaxBody = 10 * 1024 * 1024 // 10 MB

// Fetcher downloads web pages.
type Fetcher struct {
	Client  *http.Client
	MaxBody int64
}

// NewFetcher creates a Fetcher with the given timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		Client:  &http.Client{Timeout: timeout},
		MaxBody: DefaultMaxBody,
	}
}

// Fetch downloads rawURL and extracts its article text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return Document{}, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("create request: %w", err)
	}
	// Some news sites block the default Go user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	maxBody := f.MaxBody
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	if resp.ContentLength > maxBody {
		return Document{}, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, maxBody)
	}
	// Read one byte past the limit to tell a truncated body from one that fits exactly.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return Document{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > maxBody {
		return Document{}, fmt.Errorf("response body exceeded maximum size limit of %d bytes", maxBody)
	}

	doc, err := FromHTML(bytes.NewReader(body), parsedURL)
	if err != nil {
		return Document{}, err
	}
	doc.Name = parsedURL.Hostname()
	return doc, nil
}
