package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const previewPage = `<!DOCTYPE html>
<html><body>
<div class="tgme_page">
  <div class="tgme_page_title"><span dir="auto">Daily News</span></div>
  <div class="tgme_page_extra">12 345 subscribers</div>
</div>
</body></html>`

func TestFetchChannelTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dailynews" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, previewPage)
	}))
	defer srv.Close()

	info := NewChannelInfoWithBase(srv.Client(), srv.URL)

	title, err := info.FetchChannelTitle(context.Background(), "@dailynews")
	require.NoError(t, err)
	assert.Equal(t, "Daily News", title)

	// Handle without the @ prefix works too.
	title, err = info.FetchChannelTitle(context.Background(), "dailynews")
	require.NoError(t, err)
	assert.Equal(t, "Daily News", title)
}

func TestFetchChannelTitleMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	info := NewChannelInfoWithBase(srv.Client(), srv.URL)

	_, err := info.FetchChannelTitle(context.Background(), "@ghost")
	assert.Error(t, err)

	_, err = info.FetchChannelTitle(context.Background(), "")
	assert.Error(t, err)
}

func TestFetchChannelTitleNoTitleInPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="tgme_page"></div></body></html>`)
	}))
	defer srv.Close()

	info := NewChannelInfoWithBase(srv.Client(), srv.URL)

	_, err := info.FetchChannelTitle(context.Background(), "@empty")
	assert.Error(t, err)
}
