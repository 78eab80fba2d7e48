package ui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/png" // register PNG for DecodeConfig
	"os"
	"path/filepath"
	"strings"

	"github.com/muurk/imagegen/internal/protocol"
)

// DataURI prefixes a bare base64 PNG for display
func DataURI(b64 string) string {
	return protocol.ImageDataURIPrefix + b64
}

// FormatSimilarity renders a score the way the results list shows it
func FormatSimilarity(percents float64) string {
	return fmt.Sprintf("유사도: %.1f%%", percents)
}

// ImageInfo describes a base64 image without drawing it
type ImageInfo struct {
	DataURI string
	Bytes   int
	Width   int
	Height  int
	Format  string
	Err     error
}

// Decoded reports whether the image header could be read
func (i ImageInfo) Decoded() bool {
	return i.Err == nil && i.Format != ""
}

// InspectImage decodes the base64 payload and reads the image header.
// Invalid data is reported in Err; the rest of the info stays usable.
func InspectImage(b64 string) ImageInfo {
	info := ImageInfo{DataURI: DataURI(b64)}

	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		info.Err = fmt.Errorf("invalid base64: %w", err)
		return info
	}
	info.Bytes = len(raw)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		info.Err = fmt.Errorf("unreadable image: %w", err)
		return info
	}
	info.Width, info.Height, info.Format = cfg.Width, cfg.Height, format
	return info
}

// renderCard draws one image as a bordered card
func renderCard(title, b64 string, width int) string {
	info := InspectImage(b64)

	var lines []string
	lines = append(lines, SectionTitleStyle.Render(title))
	if info.Decoded() {
		lines = append(lines, fmt.Sprintf("%s %d×%d, %s", strings.ToUpper(info.Format), info.Width, info.Height, formatBytes(info.Bytes)))
	} else {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("image data, %s", formatBytes(info.Bytes))))
	}
	lines = append(lines, MutedStyle.Render(truncateMiddle(info.DataURI, width-8)))

	return CardStyle.Width(width - 4).Render(strings.Join(lines, "\n"))
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func truncateMiddle(s string, max int) string {
	if max < 8 || len(s) <= max {
		return s
	}
	half := (max - 1) / 2
	return s[:half] + "…" + s[len(s)-half:]
}

// SaveImages writes the query image and every result image under dir as
// query.png, result_01.png, ... and returns the written paths.
// Items without an image are skipped.
func SaveImages(dir, queryImage string, items []protocol.VectorItem) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	write := func(name, b64 string) error {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, raw, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	if queryImage != "" {
		if err := write("query.png", queryImage); err != nil {
			return written, err
		}
	}
	for i, item := range items {
		if item.Image == "" {
			continue
		}
		if err := write(fmt.Sprintf("result_%02d.png", i+1), item.Image); err != nil {
			return written, err
		}
	}
	return written, nil
}
