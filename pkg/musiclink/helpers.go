package musiclink

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// commonUserAgent is the user agent string used for all HTTP requests.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// commonAcceptHeader is the accept header used for all HTTP requests.
	commonAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// minTitleTagMatches is the minimum number of regex matches expected for title tag extraction.
	minTitleTagMatches = 2
	// expectedSplitParts is the expected number of parts when splitting title/artist strings.
	expectedSplitParts = 2
	// defaultHTTPTimeout is the default timeout for HTTP requests.
	defaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 3
	// defaultMaxReadSize limits the amount of HTML we read; metadata lives in the head.
	defaultMaxReadSize = 100 * 1024
)

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")

	titleTagRegex = regexp.MustCompile(`<title[^>]*>([^<]+)</title>`)
)

// newHTTPClient creates a new HTTP client with standard settings and redirect validation.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetchHTMLFromURL fetches HTML content from a URL with a size limit.
func fetchHTMLFromURL(
	ctx context.Context,
	client *http.Client,
	pageURL string,
	serviceName string,
	maxReadSize int64,
) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", err
	}

	// Set realistic browser headers.
	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", commonAcceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", serviceName, resp.StatusCode)
	}

	// Read response body (limited to avoid excessive memory use).
	limitedReader := io.LimitReader(resp.Body, maxReadSize)
	bodyBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(bodyBytes), nil
}

// titleTagText returns the unescaped content of the first <title> tag.
func titleTagText(page string) string {
	matches := titleTagRegex.FindStringSubmatch(page)
	if len(matches) < minTitleTagMatches {
		return ""
	}
	return html.UnescapeString(matches[1])
}

// metaProperty returns the content of the first <meta property="..."> tag.
func metaProperty(page, property string) string {
	re := regexp.MustCompile(`<meta\s+property="` + regexp.QuoteMeta(property) + `"\s+content="([^"]+)"`)
	if matches := re.FindStringSubmatch(page); len(matches) > 1 {
		return html.UnescapeString(matches[1])
	}
	return ""
}

// extractTitleAndArtistFromTitleTag extracts track info from HTML <title> tag.
// This handles the common pattern of "Track Title by Artist on Service" format.
func extractTitleAndArtistFromTitleTag(page, serviceSuffix, separator string) (title, artist string) {
	titleText := titleTagText(page)
	if titleText == "" {
		return "", ""
	}

	// Remove service suffix if present.
	if serviceSuffix != "" {
		titleText = strings.TrimSuffix(titleText, serviceSuffix)
		titleText = strings.TrimSpace(titleText)
	}

	// Split by separator to separate track title from artist(s).
	if separator != "" && strings.Contains(titleText, separator) {
		parts := strings.SplitN(titleText, separator, expectedSplitParts)
		if len(parts) == expectedSplitParts {
			title = strings.TrimSpace(parts[0])
			artist = strings.TrimSpace(parts[1])
			return title, artist
		}
	}

	// If no separator, treat the whole thing as the title.
	return titleText, ""
}

// artistAfterBy returns what follows the first "by " word (any case) in s,
// cut before suffix.
func artistAfterBy(s, suffix string) string {
	lower := strings.ToLower(s)

	var rest string
	if strings.HasPrefix(lower, "by ") {
		rest = s[len("by "):]
	} else {
		idx := strings.Index(lower, " by ")
		if idx < 0 {
			return ""
		}
		rest = s[idx+len(" by "):]
	}

	if suffix != "" {
		if i := strings.Index(rest, suffix); i >= 0 {
			rest = rest[:i]
		}
	}
	return strings.TrimSpace(rest)
}
