package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ChannelInfo scrapes the public t.me preview page for channel display
// metadata. The Bot API exposes no channel title without admin rights, so
// this is the only source available at task-creation time.
type ChannelInfo struct {
	http    *http.Client
	baseURL string
}

func NewChannelInfo() *ChannelInfo {
	return &ChannelInfo{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://t.me",
	}
}

// NewChannelInfoWithBase is used by tests to point at a fake t.me.
func NewChannelInfoWithBase(client *http.Client, baseURL string) *ChannelInfo {
	return &ChannelInfo{http: client, baseURL: baseURL}
}

func (c *ChannelInfo) FetchChannelTitle(ctx context.Context, channelUsername string) (string, error) {
	handle := strings.TrimPrefix(channelUsername, "@")
	if handle == "" {
		return "", fmt.Errorf("empty channel username")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+handle, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch channel page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("channel page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse channel page: %w", err)
	}

	title := strings.TrimSpace(doc.Find(".tgme_page_title span").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find(".tgme_page_title").First().Text())
	}
	if title == "" {
		return "", fmt.Errorf("channel title not found for @%s", handle)
	}
	return title, nil
}
