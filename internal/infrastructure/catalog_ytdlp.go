package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/vidgrab-go/internal/domain"
)

// YTDLPCatalog resolves source URLs through the yt-dlp binary. It asks for
// the info JSON only (no download) and maps the reported formats onto stream
// descriptors. Extraction is retried a bounded number of times before the
// failure surfaces as ResolutionFailed.
type YTDLPCatalog struct {
	binary     string
	geoBypass  bool
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	logger     *zap.Logger
}

// NewYTDLPCatalog creates a catalog resolver from the engine configuration
func NewYTDLPCatalog(cfg *domain.EngineConfig, logger *zap.Logger) *YTDLPCatalog {
	binary := cfg.YTDLPBinary
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPCatalog{
		binary:     binary,
		geoBypass:  cfg.GeoBypass,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.AttemptTimeout,
		logger:     logger,
	}
}

// Resolve fetches the stream catalog for a URL
func (c *YTDLPCatalog) Resolve(ctx context.Context, url string) (*domain.Catalog, error) {
	args := []string{
		"-J",
		"--no-warnings",
		"--no-playlist",
		"--socket-timeout", fmt.Sprintf("%d", int(c.timeout.Seconds())),
	}
	if c.geoBypass {
		args = append(args, "--geo-bypass")
	}
	args = append(args, url)

	c.logger.Debug("Resolving catalog",
		zap.String("command", ShellEscapeCommand(c.binary, args...)))

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			c.logger.Info("Retrying catalog resolution",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.maxRetries))
		}

		out, err := c.resolveOnce(ctx, args)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		c.logger.Warn("Catalog resolution attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	return nil, domain.NewFailure(domain.FailureResolution, lastErr)
}

func (c *YTDLPCatalog) resolveOnce(ctx context.Context, args []string) (*domain.Catalog, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// yt-dlp explains extraction failures on stderr (unsupported URL,
		// removed content, region block); keep that message verbatim.
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("yt-dlp failed: %w", err)
		}
		return nil, fmt.Errorf("yt-dlp failed: %s", lastLines(msg, 2))
	}

	return ParseCatalogJSON(stdout.Bytes())
}

// ytdlpInfo mirrors the subset of yt-dlp's info JSON the engine consumes
type ytdlpInfo struct {
	Title   string        `json:"title"`
	Formats []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID string   `json:"format_id"`
	Ext      string   `json:"ext"`
	URL      string   `json:"url"`
	Height   *float64 `json:"height"`
	Vcodec   string   `json:"vcodec"`
	Acodec   string   `json:"acodec"`
	Tbr      *float64 `json:"tbr"`
	Abr      *float64 `json:"abr"`
	Vbr      *float64 `json:"vbr"`
}

// ParseCatalogJSON maps a yt-dlp info JSON document onto a catalog
func ParseCatalogJSON(data []byte) (*domain.Catalog, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse extractor output: %w", err)
	}

	catalog := &domain.Catalog{Title: info.Title}
	for _, f := range info.Formats {
		if f.URL == "" || f.FormatID == "" {
			continue
		}
		d := domain.StreamDescriptor{
			ID:        f.FormatID,
			Container: f.Ext,
			HasVideo:  hasCodec(f.Vcodec),
			HasAudio:  hasCodec(f.Acodec),
			MediaURL:  f.URL,
		}
		if f.Height != nil {
			d.Height = int(*f.Height)
		}
		switch {
		case f.Tbr != nil:
			d.Bitrate = *f.Tbr
		case f.Abr != nil:
			d.Bitrate = *f.Abr
		case f.Vbr != nil:
			d.Bitrate = *f.Vbr
		}
		if !d.HasVideo && !d.HasAudio {
			continue
		}
		catalog.Streams = append(catalog.Streams, d)
	}

	if len(catalog.Streams) == 0 {
		return nil, fmt.Errorf("extractor returned no downloadable formats")
	}
	return catalog, nil
}

func hasCodec(codec string) bool {
	return codec != "" && codec != "none"
}
