package bot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sourcegraph/conc/iter"

	"wikilist/internal/search"
)

const maxImageSize = 5 << 20

var validMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ImageCache downloads profile pictures once and remembers failures so a
// broken URL falls back to the default picture without another request.
type ImageCache struct {
	cache      sync.Map
	httpClient *http.Client
	maxSize    int64
	fallback   []byte
	notFound   []byte
}

func NewImageCache(fallbackPath, notFoundPath string) (*ImageCache, error) {
	fallback, err := readImageFile(fallbackPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load fallback image: %w", err)
	}
	notFound, err := readImageFile(notFoundPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load not-found image: %w", err)
	}
	return newImageCache(fallback, notFound), nil
}

func newImageCache(fallback, notFound []byte) *ImageCache {
	return &ImageCache{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxSize:    maxImageSize,
		fallback:   fallback,
		notFound:   notFound,
	}
}

func readImageFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// Get returns the profile picture for url, or the default picture when url
// is empty or cannot be used. A download cut short by ctx is not
// remembered as a failure.
func (c *ImageCache) Get(ctx context.Context, url string) tgbotapi.RequestFileData {
	if url == "" {
		return c.fallbackImage()
	}

	if cached, ok := c.cache.Load(url); ok {
		switch v := cached.(type) {
		case cachedImage:
			return tgbotapi.FileBytes{Name: "profile" + v.ext, Bytes: v.data}
		case error:
			return c.fallbackImage()
		}
	}

	imgData, contentType, err := c.downloadAndValidateImage(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return c.fallbackImage()
		}
		slog.Warn("Failed to download image", "url", url, "error", err)
		c.cache.Store(url, err)
		return c.fallbackImage()
	}

	img := cachedImage{data: imgData, ext: getExtensionFromContentType(contentType)}
	c.cache.Store(url, img)
	return tgbotapi.FileBytes{Name: "profile" + img.ext, Bytes: img.data}
}

type cachedImage struct {
	data []byte
	ext  string
}

// GetAll resolves the pictures of a result grid concurrently, keeping order.
func (c *ImageCache) GetAll(ctx context.Context, items []search.Item) []tgbotapi.RequestFileData {
	return iter.Map(items, func(item *search.Item) tgbotapi.RequestFileData {
		return c.Get(ctx, item.Image)
	})
}

func (c *ImageCache) NotFound() tgbotapi.RequestFileData {
	return tgbotapi.FileBytes{Name: "no-search.png", Bytes: c.notFound}
}

func (c *ImageCache) fallbackImage() tgbotapi.RequestFileData {
	return tgbotapi.FileBytes{Name: "basic-profile.png", Bytes: c.fallback}
}

func (c *ImageCache) downloadAndValidateImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("bad image url: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http get failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("invalid status code: %d", resp.StatusCode)
	}

	imgData, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read failed: %w", err)
	}
	if int64(len(imgData)) > c.maxSize {
		return nil, "", fmt.Errorf("image larger than %d bytes", c.maxSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(imgData)
	}
	contentType = strings.TrimSpace(strings.Split(contentType, ";")[0])

	if !validMimeTypes[contentType] {
		return nil, "", fmt.Errorf("invalid content type: %s", contentType)
	}

	// webp has no decoder registered; telegram accepts it as is.
	if contentType != "image/webp" {
		if _, _, err := image.DecodeConfig(bytes.NewReader(imgData)); err != nil {
			return nil, "", fmt.Errorf("invalid image format: %w", err)
		}
	}

	return imgData, contentType, nil
}

func getExtensionFromContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg"):
		return ".jpg"
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}

func (c *ImageCache) ClearPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Info("Image cache cleared", "count", c.Clear())
		case <-ctx.Done():
			return
		}
	}
}

func (c *ImageCache) Clear() int {
	clearCount := 0
	c.cache.Range(func(key, value interface{}) bool {
		c.cache.Delete(key)
		clearCount++
		return true
	})
	return clearCount
}
