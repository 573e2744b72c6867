package analyzer

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/attachkit/attachkit"
)

func TestRunRewindsBetweenAnalyzers(t *testing.T) {
	src := strings.NewReader("hello")
	uc := attachkit.UploadContext{Filename: "greeting.txt"}

	// both analyzers consume the full stream; without rewinding the second
	// would see zero bytes
	md, err := Run(context.Background(), []Analyzer{Size(), Digest(digest.SHA256), Filename()}, src, uc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if md.Size == nil || *md.Size != 5 {
		t.Errorf("size = %v, want 5", md.Size)
	}
	if md.Filename == nil || *md.Filename != "greeting.txt" {
		t.Errorf("filename = %v, want greeting.txt", md.Filename)
	}
	dgst, ok := md.Extra.Get("sha256")
	if !ok {
		t.Fatal("expected a sha256 extra")
	}
	want := digest.FromString("hello").Encoded()
	if dgst != want {
		t.Errorf("sha256 = %v, want %v", dgst, want)
	}

	// the source is rewound for the caller as well
	rest := make([]byte, 5)
	if n, _ := src.Read(rest); n != 5 {
		t.Errorf("source not rewound after Run, read %d bytes", n)
	}
}

func TestMIMESniff(t *testing.T) {
	src := strings.NewReader(`{"key": "value"}`)

	md, err := Run(context.Background(), []Analyzer{MIME(SniffMIME)}, src, attachkit.UploadContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.MIMEType == nil || !strings.HasPrefix(*md.MIMEType, "application/json") {
		t.Errorf("mime type = %v, want application/json", md.MIMEType)
	}
}

func TestMIMEExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.png", "image/png"},
		{"noextension", ""},
		{"trailingdot.", ""},
		{"", ""},
	}

	for _, tt := range tests {
		src := strings.NewReader("irrelevant")
		md, err := Run(context.Background(), []Analyzer{MIME(ExtensionMIME)}, src, attachkit.UploadContext{Filename: tt.filename})
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.filename, err)
		}
		if tt.want == "" {
			if md.MIMEType != nil {
				t.Errorf("%q: mime type = %q, want none", tt.filename, *md.MIMEType)
			}
			continue
		}
		if md.MIMEType == nil || *md.MIMEType != tt.want {
			t.Errorf("%q: mime type = %v, want %q", tt.filename, md.MIMEType, tt.want)
		}
	}
}

func TestMIMESupplied(t *testing.T) {
	src := strings.NewReader("bytes")
	uc := attachkit.UploadContext{ContentType: "application/x-custom"}

	md, err := Run(context.Background(), []Analyzer{MIME(SuppliedMIME)}, src, uc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.MIMEType == nil || *md.MIMEType != "application/x-custom" {
		t.Errorf("mime type = %v, want application/x-custom", md.MIMEType)
	}
}

func TestDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}

	md, err := Run(context.Background(), []Analyzer{Dimensions()}, bytes.NewReader(buf.Bytes()), attachkit.UploadContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	width, _ := md.Extra.Get("width")
	height, _ := md.Extra.Get("height")
	if width != 3 || height != 2 {
		t.Errorf("dimensions = %vx%v, want 3x2", width, height)
	}
}

func TestDimensionsNonImage(t *testing.T) {
	src := strings.NewReader("plain text, not an image")

	md, err := Run(context.Background(), []Analyzer{Dimensions()}, src, attachkit.UploadContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.Extra.Len() != 0 {
		t.Errorf("expected no extras for non-image content, got %v", md.Extra.Keys())
	}
}

func TestLimitMaxSize(t *testing.T) {
	src := strings.NewReader("0123456789")

	_, err := Run(context.Background(), []Analyzer{Limit(Limits{MaxSize: 5})}, src, attachkit.UploadContext{})
	invalid, ok := err.(attachkit.InvalidFileError)
	if !ok {
		t.Fatalf("expected InvalidFileError, got %v", err)
	}
	if invalid.Reason == "" {
		t.Error("expected a human-readable reason")
	}

	// content at the limit passes
	src = strings.NewReader("01234")
	if _, err := Run(context.Background(), []Analyzer{Limit(Limits{MaxSize: 5})}, src, attachkit.UploadContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLimitAllowedTypes(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}

	limit := Limit(Limits{AllowedTypes: []string{"image/*"}})

	if _, err := Run(context.Background(), []Analyzer{limit}, bytes.NewReader(buf.Bytes()), attachkit.UploadContext{}); err != nil {
		t.Fatalf("png against image/*: unexpected error: %v", err)
	}

	_, err := Run(context.Background(), []Analyzer{limit}, strings.NewReader("just text"), attachkit.UploadContext{})
	if _, ok := err.(attachkit.InvalidFileError); !ok {
		t.Fatalf("text against image/*: expected InvalidFileError, got %v", err)
	}

	// an exact entry matches regardless of sniffed parameters
	limit = Limit(Limits{AllowedTypes: []string{"text/plain"}})
	if _, err := Run(context.Background(), []Analyzer{limit}, strings.NewReader("just text"), attachkit.UploadContext{}); err != nil {
		t.Fatalf("text against text/plain: unexpected error: %v", err)
	}
}
