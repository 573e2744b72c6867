package attachkit

import "testing"

func TestFileEqual(t *testing.T) {
	a := File{ID: "x", StorageKey: CacheStorage}
	b := File{ID: "x", StorageKey: CacheStorage}
	b.Metadata.SetSize(99)

	if !a.Equal(b) {
		t.Error("metadata must not participate in identity")
	}
	if a.Equal(File{ID: "x", StorageKey: StoreStorage}) {
		t.Error("distinct storage keys must not compare equal")
	}
	if a.Equal(File{ID: "y", StorageKey: CacheStorage}) {
		t.Error("distinct ids must not compare equal")
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"photo.png", ".png"},
		{"archive.tar.gz", ".gz"},
		{"dir/nested/file.txt", ".txt"},
		{"noextension", ""},
		{"trailingdot.", ""},
		{".profile", ""},
		{"dir.v2/file", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Extension(tt.name); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFileExtensionPrefersFilename(t *testing.T) {
	f := File{ID: "0199dead.bin", StorageKey: StoreStorage}
	f.Metadata.SetFilename("report.pdf")
	if got := f.Extension(); got != ".pdf" {
		t.Errorf("extension = %q, want .pdf", got)
	}

	// falls back to the id when the filename has no usable extension
	f.Metadata.SetFilename("report")
	if got := f.Extension(); got != ".bin" {
		t.Errorf("extension = %q, want .bin", got)
	}

	f = File{ID: "noext", StorageKey: StoreStorage}
	if got := f.Extension(); got != "" {
		t.Errorf("extension = %q, want none", got)
	}
}
