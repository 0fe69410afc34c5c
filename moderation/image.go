package moderation

import (
	"bufio"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	MaxImageSize      = 10 * 1024 * 1024
	MaxImageDimension = 4000

	sniffLen = 3072
)

// ImageModerator validates an image reference: size, dimensions and format.
// Decoders for BMP and TIFF are registered so those files are recognized and
// refused as unsupported rather than failing as unreadable.
type ImageModerator struct {
	log      *slog.Logger
	resolver contract.ImageResolver
}

func NewImageModerator(log *slog.Logger, resolver contract.ImageResolver) *ImageModerator {
	return &ImageModerator{log: log, resolver: resolver}
}

func (m *ImageModerator) Moderate(ctx context.Context, ref string) domain.Verdict {
	if ref == "" || m.resolver == nil {
		return domain.Allow("No image provided or file not found")
	}

	src, err := m.resolver.Open(ctx, ref)
	if err != nil {
		if stdErrors.Is(err, errors.ErrImageNotFound) {
			return domain.Allow("No image provided or file not found")
		}
		return m.processingError(ref, err)
	}
	defer func() { _ = src.Body.Close() }()

	verdict, err := m.inspect(src)
	if err != nil {
		return m.processingError(ref, err)
	}
	return verdict
}

func (m *ImageModerator) inspect(src domain.ImageSource) (domain.Verdict, error) {
	counter := &countingReader{r: src.Body}
	reader := bufio.NewReaderSize(counter, sniffLen)

	header, err := reader.Peek(sniffLen)
	if err != nil && !stdErrors.Is(err, io.EOF) && !stdErrors.Is(err, bufio.ErrBufferFull) {
		return domain.Verdict{}, err
	}
	detected := mimetype.Detect(header).String()

	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return domain.Verdict{}, err
	}

	size := src.Size
	if size < 0 {
		// Drain just past the limit; the underlying count is then either the
		// exact size or proof that the limit was crossed.
		if _, err := io.Copy(io.Discard, io.LimitReader(reader, MaxImageSize+1)); err != nil {
			return domain.Verdict{}, err
		}
		size = counter.n
	}

	if size > MaxImageSize {
		return domain.Deny("Image file too large", domain.SeverityMedium), nil
	}
	if cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
		return domain.Deny("Image dimensions too large", domain.SeverityLow), nil
	}
	if !mimetypes.IsSupportedImage(detected) {
		m.log.Debug("Unsupported image format", "mime", detected)
		return domain.Deny("Unsupported image format", domain.SeverityMedium), nil
	}
	return domain.Allow("Image passed basic validation"), nil
}

func (m *ImageModerator) processingError(ref string, err error) domain.Verdict {
	m.log.Error("Image moderation error", "ref", ref, "error", err)
	return domain.Deny(fmt.Sprintf("Image processing error: %v", err), domain.SeverityMedium)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
