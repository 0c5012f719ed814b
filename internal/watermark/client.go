package watermark

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultEndpoint = "https://watermark-remover2.p.rapidapi.com/remove-watermark"
	DefaultHost     = "watermark-remover2.p.rapidapi.com"

	placeholderKey = "your_rapidapi_key_here"
	userAgent      = "Mozilla/5.0 (compatible; NewsBot/1.0)"
	maxImageBytes  = 20 << 20
)

var (
	ErrNotConfigured = errors.New("watermark api key not configured")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// StatusError is a non-2xx answer from the image host or the removal API.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

type Config struct {
	APIKey          string
	Endpoint        string
	Host            string
	DownloadTimeout time.Duration
	RemoveTimeout   time.Duration
}

// Client downloads an image and forwards it to the RapidAPI watermark remover.
type Client struct {
	apiKey     string
	endpoint   string
	host       string
	downloader *http.Client
	remover    *http.Client
	maxBytes   int64
	logger     logrus.FieldLogger
}

func NewClient(cfg Config, logger logrus.FieldLogger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   cfg.Endpoint,
		host:       cfg.Host,
		downloader: &http.Client{Timeout: cfg.DownloadTimeout},
		remover:    &http.Client{Timeout: cfg.RemoveTimeout},
		maxBytes:   maxImageBytes,
		logger:     logger.WithField("component", "watermark"),
	}
}

// Configured reports whether a real API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != placeholderKey
}

// Remove returns the cleaned image as a base64 data URL.
func (c *Client) Remove(ctx context.Context, imageURL string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	image, contentType, err := c.download(ctx, imageURL)
	if err != nil {
		return "", err
	}

	cleaned, cleanedType, err := c.removeWatermark(ctx, image, contentType)
	if err != nil {
		return "", err
	}

	c.logger.WithFields(logrus.Fields{
		"source_bytes":  len(image),
		"cleaned_bytes": len(cleaned),
	}).Debug("watermark removed")

	return "data:" + cleanedType + ";base64," + base64.StdEncoding.EncodeToString(cleaned), nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", imageURL)

	resp, err := c.downloader.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Op: "download image", StatusCode: resp.StatusCode}
	}

	data, err := c.readBody(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	return data, contentTypeOr(resp.Header, "image/jpeg"), nil
}

func (c *Client) removeWatermark(ctx context.Context, image []byte, contentType string) ([]byte, string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreatePart(imagePartHeader(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, "", fmt.Errorf("create remove request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.remover.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("remove watermark: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Op: "remove watermark", StatusCode: resp.StatusCode}
	}

	data, err := c.readBody(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read cleaned image: %w", err)
	}

	return data, contentTypeOr(resp.Header, "image/png"), nil
}

// readBody reads at most maxBytes and fails rather than truncating.
func (c *Client) readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, c.maxBytes)
	}
	return data, nil
}

func contentTypeOr(h http.Header, fallback string) string {
	if ct := h.Get("Content-Type"); ct != "" {
		return ct
	}
	return fallback
}

func imagePartHeader(contentType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="news-image.%s"`, extension(contentType)))
	h.Set("Content-Type", contentType)
	return h
}

// extension derives a file extension from a content type, "image/webp" -> "webp".
func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	_, sub, ok := strings.Cut(mediaType, "/")
	if !ok || sub == "" {
		return "jpg"
	}
	return sub
}

// UserMessage maps a Remove error to the text shown to the caller.
func UserMessage(err error) string {
	var statusErr *StatusError
	var netErr net.Error

	switch {
	case errors.Is(err, ErrNotConfigured):
		return "Watermark API key not configured. Set WATERMARK_API_KEY in the environment."
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusForbidden:
		return "API key invalid or quota exceeded. Check your RapidAPI subscription."
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests:
		return "Rate limit reached. Please wait a moment and try again."
	case errors.Is(err, ErrImageTooLarge):
		return "Image is too large. The limit is 20 MB."
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "Request timed out. The image may be too large or the service is slow."
	default:
		return "Failed to remove watermark. Please try again."
	}
}
