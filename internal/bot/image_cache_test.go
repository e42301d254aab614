package bot

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikilist/internal/search"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fileBytes(t *testing.T, data tgbotapi.RequestFileData) tgbotapi.FileBytes {
	t.Helper()
	fb, ok := data.(tgbotapi.FileBytes)
	require.True(t, ok, "expected FileBytes, got %T", data)
	return fb
}

func TestImageCacheDownloadsAndCaches(t *testing.T) {
	picture := pngBytes(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/kim.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(picture)
		case "/text":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("hello"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newImageCache([]byte("fallback"), []byte("not-found"))

	got := fileBytes(t, c.Get(context.Background(), srv.URL+"/kim.png"))
	assert.Equal(t, picture, got.Bytes)
	assert.Equal(t, "profile.png", got.Name)

	fileBytes(t, c.Get(context.Background(), srv.URL+"/kim.png"))
	assert.Equal(t, int32(1), hits.Load(), "second lookup is served from cache")

	for _, path := range []string{"/text", "/missing"} {
		got = fileBytes(t, c.Get(context.Background(), srv.URL+path))
		assert.Equal(t, []byte("fallback"), got.Bytes)
		fileBytes(t, c.Get(context.Background(), srv.URL+path))
	}
	assert.Equal(t, int32(3), hits.Load(), "failures are cached too")

	assert.Equal(t, 3, c.Clear())
	fileBytes(t, c.Get(context.Background(), srv.URL+"/kim.png"))
	assert.Equal(t, int32(4), hits.Load())
}

func TestImageCacheFallbacks(t *testing.T) {
	c := newImageCache([]byte("fallback"), []byte("not-found"))

	assert.Equal(t, []byte("fallback"), fileBytes(t, c.Get(context.Background(), "")).Bytes)
	assert.Equal(t, []byte("not-found"), fileBytes(t, c.NotFound()).Bytes)
}

func TestImageCacheGetAllKeepsOrder(t *testing.T) {
	picture := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(picture)
	}))
	defer srv.Close()

	c := newImageCache([]byte("fallback"), []byte("not-found"))
	images := c.GetAll(context.Background(), []search.Item{{Name: "a"}, {Name: "b", Image: srv.URL + "/b.png"}, {Name: "c"}})

	require.Len(t, images, 3)
	assert.Equal(t, []byte("fallback"), fileBytes(t, images[0]).Bytes)
	assert.Equal(t, picture, fileBytes(t, images[1]).Bytes)
	assert.Equal(t, []byte("fallback"), fileBytes(t, images[2]).Bytes)
}

func TestNewImageCacheMissingFile(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "basic.png")
	require.NoError(t, os.WriteFile(fallback, pngBytes(t), 0o644))

	_, err := NewImageCache(fallback, filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	c, err := NewImageCache(fallback, fallback)
	require.NoError(t, err)
	assert.NotEmpty(t, fileBytes(t, c.NotFound()).Bytes)
}

func TestPaginationKeyboard(t *testing.T) {
	b := &Bot{}

	first := b.createPaginationKeyboard(1, true)
	require.Len(t, first.InlineKeyboard, 2)
	require.Len(t, first.InlineKeyboard[0], 1)
	assert.Equal(t, "page:2", *first.InlineKeyboard[0][0].CallbackData)

	middle := b.createPaginationKeyboard(2, true)
	require.Len(t, middle.InlineKeyboard[0], 2)
	assert.Equal(t, "page:1", *middle.InlineKeyboard[0][0].CallbackData)

	last := b.createPaginationKeyboard(1, false)
	require.Len(t, last.InlineKeyboard, 1)
	assert.Equal(t, callbackCancel, *last.InlineKeyboard[0][0].CallbackData)
}

func TestHasNextPage(t *testing.T) {
	assert.True(t, hasNextPage(1, 6, 7))
	assert.False(t, hasNextPage(1, 6, 6))
	assert.False(t, hasNextPage(2, 6, 12))
}

func TestImageCacheRejectsOversizedImage(t *testing.T) {
	picture := pngBytes(t)
	oversized := append(append([]byte(nil), picture...), make([]byte, 100)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if r.URL.Path == "/big.png" {
			w.Write(oversized)
			return
		}
		w.Write(picture)
	}))
	defer srv.Close()

	c := newImageCache([]byte("fallback"), []byte("not-found"))
	c.maxSize = int64(len(picture))

	assert.Equal(t, picture, fileBytes(t, c.Get(context.Background(), srv.URL+"/fits.png")).Bytes)
	assert.Equal(t, []byte("fallback"), fileBytes(t, c.Get(context.Background(), srv.URL+"/big.png")).Bytes)

	cached, ok := c.cache.Load(srv.URL + "/big.png")
	require.True(t, ok)
	assert.Error(t, cached.(error))
}

func TestImageCacheCancelledDownloadNotRemembered(t *testing.T) {
	picture := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(picture)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newImageCache([]byte("fallback"), []byte("not-found"))
	assert.Equal(t, []byte("fallback"), fileBytes(t, c.Get(ctx, srv.URL+"/a.png")).Bytes)

	_, ok := c.cache.Load(srv.URL + "/a.png")
	assert.False(t, ok)
}

func TestFormatProfileCaption(t *testing.T) {
	assert.Equal(t, "김철수", formatProfileCaption(search.Item{Name: "김철수"}))

	long := strings.Repeat("김", telegramCaptionLimit+10)
	caption := formatProfileCaption(search.Item{Name: long})
	assert.True(t, utf8.ValidString(caption))
	assert.Equal(t, telegramCaptionLimit, utf8.RuneCountInString(caption))
	assert.True(t, strings.HasSuffix(caption, "..."))

	exact := strings.Repeat("김", telegramCaptionLimit)
	assert.Equal(t, exact, formatProfileCaption(search.Item{Name: exact}))
}
