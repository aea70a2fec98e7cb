package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Platform identifiers for supported share links.
const (
	PlatformDouyin = "douyin"
	PlatformXHS    = "xiaohongshu"
)

// Resolution is the outcome of resolving a share link: a stable identity for
// the clip plus a directly fetchable media URL.
type Resolution struct {
	Platform    string
	VideoID     string
	Title       string
	DownloadURL string
}

// Client resolves pasted share text into a downloadable media URL.
type Client interface {
	Resolve(ctx context.Context, shareText string) (*Resolution, error)
}

// Config for creating a new share-link resolver.
type Config struct {
	Timeout   time.Duration // Optional, defaults to 10 seconds
	UserAgent string        // Mobile UA, required for the Douyin share page
	// XHSAPIBase is the third-party extraction API used for Xiaohongshu
	// links, which do not expose the media URL in the share page.
	XHSAPIBase string
}

// HTTPClient implements Client for Douyin and Xiaohongshu share links.
type HTTPClient struct {
	userAgent  string
	xhsAPIBase string
	httpClient *http.Client
}

var (
	urlPattern = regexp.MustCompile(`https?://[^\s，。！？"'<>【】]+`)

	douyinVideoIDPattern = regexp.MustCompile(`/(?:video|note)/(\d+)`)
	douyinModalPattern   = regexp.MustCompile(`modal_id=(\d+)`)
	// (?s) because the embedded JSON spans lines on real share pages.
	routerDataPattern = regexp.MustCompile(`(?s)window\._ROUTER_DATA\s*=\s*(\{.*?\})\s*</script>`)

	xhsItemIDPattern = regexp.MustCompile(`/(?:explore|discovery/item|item)/([0-9a-fA-F]+)`)

	hashtagPattern = regexp.MustCompile(`#\S+`)
	unsafePattern  = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]`)
)

// NewClient creates a new share-link resolver.
func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &HTTPClient{
		userAgent:  cfg.UserAgent,
		xhsAPIBase: strings.TrimSuffix(cfg.XHSAPIBase, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Resolve extracts the URL embedded in shareText, detects the platform, and
// resolves it to a downloadable media URL.
func (c *HTTPClient) Resolve(ctx context.Context, shareText string) (*Resolution, error) {
	rawURL := urlPattern.FindString(shareText)
	if rawURL == "" {
		return nil, fmt.Errorf("no URL found in share text")
	}

	switch {
	case strings.Contains(rawURL, "douyin.com"):
		return c.resolveDouyin(ctx, rawURL)
	case strings.Contains(rawURL, "xiaohongshu.com"), strings.Contains(rawURL, "xhslink.com"):
		return c.resolveXHS(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported platform for URL %s", rawURL)
	}
}

func (c *HTTPClient) resolveDouyin(ctx context.Context, rawURL string) (*Resolution, error) {
	finalURL, err := c.followRedirects(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("follow share link: %w", err)
	}

	videoID := extractDouyinVideoID(finalURL)
	if videoID == "" {
		return nil, fmt.Errorf("no video id in resolved URL %s", finalURL)
	}

	sharePage := "https://www.iesdouyin.com/share/video/" + videoID
	body, err := c.fetch(ctx, sharePage)
	if err != nil {
		return nil, fmt.Errorf("fetch share page: %w", err)
	}

	title, playURL, err := parseDouyinSharePage(body)
	if err != nil {
		return nil, fmt.Errorf("parse share page for video %s: %w", videoID, err)
	}

	return &Resolution{
		Platform:    PlatformDouyin,
		VideoID:     videoID,
		Title:       SanitizeTitle(title),
		DownloadURL: playURL,
	}, nil
}

func (c *HTTPClient) resolveXHS(ctx context.Context, rawURL string) (*Resolution, error) {
	if c.xhsAPIBase == "" {
		return nil, fmt.Errorf("xiaohongshu resolution requires an extraction API base URL")
	}

	finalURL, err := c.followRedirects(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("follow share link: %w", err)
	}

	m := xhsItemIDPattern.FindStringSubmatch(finalURL)
	if m == nil {
		return nil, fmt.Errorf("no item id in resolved URL %s", finalURL)
	}
	itemID := m[1]

	body, err := c.fetch(ctx, c.xhsAPIBase+"/api/extract?item_id="+itemID)
	if err != nil {
		return nil, fmt.Errorf("call extraction API: %w", err)
	}

	var extracted struct {
		Title    string `json:"title"`
		VideoURL string `json:"video_url"`
	}
	if err := json.Unmarshal(body, &extracted); err != nil {
		return nil, fmt.Errorf("parse extraction response: %w", err)
	}
	if extracted.VideoURL == "" {
		return nil, fmt.Errorf("extraction API returned no video URL for item %s", itemID)
	}

	return &Resolution{
		Platform:    PlatformXHS,
		VideoID:     itemID,
		Title:       SanitizeTitle(extracted.Title),
		DownloadURL: extracted.VideoURL,
	}, nil
}

// followRedirects issues a GET without following redirects and walks the
// Location chain manually, returning the final URL.
func (c *HTTPClient) followRedirects(ctx context.Context, rawURL string) (string, error) {
	noRedirect := &http.Client{
		Transport: c.httpClient.Transport,
		Timeout:   c.httpClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	current := rawURL
	for hops := 0; hops < 5; hops++ {
		req, err := http.NewRequestWithContext(ctx, "GET", current, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := noRedirect.Do(req)
		if err != nil {
			return "", err
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		loc := resp.Header.Get("Location")
		if resp.StatusCode < 300 || resp.StatusCode >= 400 || loc == "" {
			return current, nil
		}

		next, err := resp.Request.URL.Parse(loc)
		if err != nil {
			return "", fmt.Errorf("bad redirect location %q: %w", loc, err)
		}
		current = next.String()
	}

	return current, nil
}

// fetch GETs the URL with the mobile UA, retrying transient failures.
func (c *HTTPClient) fetch(ctx context.Context, url string) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("server error (status %d)", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		return body, nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.RetryWithData(operation, bo)
}

func extractDouyinVideoID(url string) string {
	if m := douyinVideoIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := douyinModalPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// parseDouyinSharePage pulls the title and no-watermark play URL out of the
// router data blob embedded in the share page.
func parseDouyinSharePage(body []byte) (title, playURL string, err error) {
	m := routerDataPattern.FindSubmatch(body)
	if m == nil {
		return "", "", fmt.Errorf("no router data in page")
	}

	var routerData struct {
		LoaderData map[string]json.RawMessage `json:"loaderData"`
	}
	if err := json.Unmarshal(m[1], &routerData); err != nil {
		return "", "", fmt.Errorf("decode router data: %w", err)
	}

	for _, raw := range routerData.LoaderData {
		var page struct {
			VideoInfoRes struct {
				ItemList []struct {
					Desc  string `json:"desc"`
					Video struct {
						PlayAddr struct {
							URLList []string `json:"url_list"`
						} `json:"play_addr"`
					} `json:"video"`
				} `json:"item_list"`
			} `json:"videoInfoRes"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			continue
		}
		items := page.VideoInfoRes.ItemList
		if len(items) == 0 || len(items[0].Video.PlayAddr.URLList) == 0 {
			continue
		}
		// The share page hands out the watermarked variant.
		play := strings.Replace(items[0].Video.PlayAddr.URLList[0], "playwm", "play", 1)
		return items[0].Desc, play, nil
	}

	return "", "", fmt.Errorf("no video info in router data")
}

// SanitizeTitle strips hashtags and filename-unsafe characters and bounds
// the length so the title is usable as a file name component.
func SanitizeTitle(title string) string {
	title = hashtagPattern.ReplaceAllString(title, "")
	title = unsafePattern.ReplaceAllString(title, "")
	title = strings.Join(strings.Fields(title), " ")

	runes := []rune(title)
	if len(runes) > 50 {
		title = string(runes[:50])
	}
	if title == "" {
		title = "untitled"
	}
	return title
}
