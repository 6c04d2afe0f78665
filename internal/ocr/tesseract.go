package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// TextRecognizer turns an image into text. The pipeline only ever feeds it
// the pre-thresholded footer strip.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, img image.Image) (string, error)
}

// DefaultOCRTimeout bounds a single Tesseract invocation. Footer strips
// are small; anything slower means Tesseract is stuck on noise.
const DefaultOCRTimeout = 10 * time.Second

// TesseractRecognizer wraps a long-lived gosseract client. The client is
// not safe for concurrent use, so calls are serialized with a mutex.
type TesseractRecognizer struct {
	mu      sync.Mutex
	client  *gosseract.Client
	timeout time.Duration
}

// NewTesseractRecognizer creates a recognizer configured for single-block
// text, which matches the one-line footer layout.
func NewTesseractRecognizer(language string, timeout time.Duration) (*TesseractRecognizer, error) {
	if language == "" {
		language = "eng"
	}
	if timeout <= 0 {
		timeout = DefaultOCRTimeout
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting tesseract language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting page segmentation mode: %w", err)
	}

	return &TesseractRecognizer{client: client, timeout: timeout}, nil
}

// RecognizeText runs OCR over img, honoring ctx and the configured timeout.
func (r *TesseractRecognizer) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding image for OCR: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
			done <- result{err: fmt.Errorf("loading image into tesseract: %w", err)}
			return
		}
		text, err := r.client.Text()
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("tesseract recognition: %w", res.err)
		}
		return res.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("OCR timed out: %w", ctx.Err())
	}
}

// Close releases the underlying Tesseract client.
func (r *TesseractRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}
