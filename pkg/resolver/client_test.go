package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sharePageTemplate = `<!DOCTYPE html><html><head></head><body>
<script>window._ROUTER_DATA = {"loaderData":{"video_(id)/page":{"videoInfoRes":{"item_list":[{"desc":"新机开箱 #数码 #开箱","video":{"play_addr":{"url_list":["%s"]}}}]}}}}</script>
</body></html>`

func TestResolveDouyin(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/video/7123456789", http.StatusFound)
	})
	mux.HandleFunc("/video/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/share/video/7123456789", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, sharePageTemplate, "https://cdn.example.com/playwm/abc.mp4")
	})

	client := newDouyinTestClient(server.URL)
	res, err := client.Resolve(context.Background(), "8.2 复制打开抖音 https://v.douyin.com/short 看看这个")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Platform != PlatformDouyin {
		t.Errorf("expected platform douyin, got %q", res.Platform)
	}
	if res.VideoID != "7123456789" {
		t.Errorf("unexpected video id %q", res.VideoID)
	}
	if res.Title != "新机开箱" {
		t.Errorf("expected hashtags stripped from title, got %q", res.Title)
	}
	if res.DownloadURL != "https://cdn.example.com/play/abc.mp4" {
		t.Errorf("expected no-watermark URL, got %q", res.DownloadURL)
	}
}

// newDouyinTestClient rewrites the hardcoded share-page host to the test
// server so the resolver stays off the network.
func newDouyinTestClient(baseURL string) *HTTPClient {
	client := NewClient(Config{UserAgent: "test-agent"})
	client.httpClient.Transport = hostRewriter{target: strings.TrimPrefix(baseURL, "http://")}
	return client
}

type hostRewriter struct {
	target string
}

func (rt hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	switch req.URL.Host {
	case "v.douyin.com", "www.iesdouyin.com", "www.xiaohongshu.com", "xhslink.com":
		req.URL.Scheme = "http"
		req.URL.Host = rt.target
	}
	return http.DefaultTransport.RoundTrip(req)
}

func TestResolveXHS(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://www.xiaohongshu.com/explore/65abc123", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/explore/65abc123", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/extract", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("item_id") != "65abc123" {
			t.Errorf("unexpected item_id %q", r.URL.Query().Get("item_id"))
		}
		fmt.Fprint(w, `{"title":"好物分享","video_url":"https://cdn.example.com/xhs.mp4"}`)
	})

	client := NewClient(Config{UserAgent: "test-agent", XHSAPIBase: server.URL})
	client.httpClient.Transport = hostRewriter{target: strings.TrimPrefix(server.URL, "http://")}

	res, err := client.Resolve(context.Background(), "看看 http://xhslink.com/short 吧")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Platform != PlatformXHS {
		t.Errorf("expected platform xiaohongshu, got %q", res.Platform)
	}
	if res.VideoID != "65abc123" {
		t.Errorf("unexpected item id %q", res.VideoID)
	}
	if res.Title != "好物分享" {
		t.Errorf("unexpected title %q", res.Title)
	}
	if res.DownloadURL != "https://cdn.example.com/xhs.mp4" {
		t.Errorf("unexpected download URL %q", res.DownloadURL)
	}
}

func TestParseDouyinSharePageMultiline(t *testing.T) {
	body := []byte(`<script>window._ROUTER_DATA = {
  "loaderData": {
    "video_(id)/page": {
      "videoInfoRes": {
        "item_list": [
          {
            "desc": "新机开箱",
            "video": {"play_addr": {"url_list": ["https://cdn.example.com/playwm/abc.mp4"]}}
          }
        ]
      }
    }
  }
}</script>`)

	title, playURL, err := parseDouyinSharePage(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "新机开箱" {
		t.Errorf("unexpected title %q", title)
	}
	if playURL != "https://cdn.example.com/play/abc.mp4" {
		t.Errorf("unexpected play URL %q", playURL)
	}
}

func TestResolveNoURL(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Resolve(context.Background(), "这段文字里没有链接")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no URL found") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestResolveUnsupportedPlatform(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Resolve(context.Background(), "https://www.bilibili.com/video/BV1xx411c7mD")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported platform") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestExtractDouyinVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.douyin.com/video/7123456789", "7123456789"},
		{"https://www.douyin.com/note/7123456789", "7123456789"},
		{"https://www.douyin.com/discover?modal_id=7123456789", "7123456789"},
		{"https://www.douyin.com/discover", ""},
	}

	for _, tt := range tests {
		if got := extractDouyinVideoID(tt.url); got != tt.want {
			t.Errorf("extractDouyinVideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"strips hashtags", "新机评测 #数码 #测评", "新机评测"},
		{"strips unsafe characters", `标题/带:坏*字?符`, "标题带坏字符"},
		{"collapses whitespace", "  a   b  ", "a b"},
		{"empty becomes untitled", "#全是话题", "untitled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.title); got != tt.want {
				t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestSanitizeTitleLength(t *testing.T) {
	long := strings.Repeat("字", 80)
	got := SanitizeTitle(long)
	if len([]rune(got)) != 50 {
		t.Errorf("expected 50-rune title, got %d", len([]rune(got)))
	}
}
