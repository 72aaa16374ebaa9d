package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/bobmcallan/assessor/internal/models"
)

func TestExtractor_TXT(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract(context.Background(), []byte("hello, world!"), models.FileTypeTXT)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if text != "hello, world!" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractor_TXT_InvalidUTF8(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), []byte{0xff, 0xfe, 0xfd}, models.FileTypeTXT)
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestExtractor_UnsupportedFileType(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), []byte("data"), models.FileTypePNG)
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType for PNG, got %v", err)
	}
}

func TestExtractPool_Extract(t *testing.T) {
	pool := NewExtractPool(NewExtractor(), 2)
	defer pool.Close()

	text, err := pool.Extract(context.Background(), []byte("plain text"), models.FileTypeTXT)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if text != "plain text" {
		t.Errorf("text = %q", text)
	}
}
