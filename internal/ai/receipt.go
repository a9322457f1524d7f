package ai

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// maxReceiptPages bounds how many PDF pages go to the Vision API. A
// receipt is one page; anything beyond two is not worth the tokens.
const maxReceiptPages = 2

// receiptImages normalizes a receipt payload into JPEG images for the
// Vision call. JPEG and PNG payloads pass through as a single image; PDF
// pages are rasterized with mupdf.
func receiptImages(payload []byte, mediaType string, logger *zap.Logger) ([][]byte, error) {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg", "image/png":
		return [][]byte{payload}, nil
	case "application/pdf":
		return pdfToImages(payload, logger)
	default:
		return nil, fmt.Errorf("unsupported media type: %s", mediaType)
	}
}

func pdfToImages(payload []byte, logger *zap.Logger) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > maxReceiptPages {
		pageCount = maxReceiptPages
	}

	var images [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			logger.Warn("Failed to rasterize PDF page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			logger.Warn("Failed to encode PDF page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		images = append(images, buf.Bytes())
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rasterized from PDF")
	}
	return images, nil
}
