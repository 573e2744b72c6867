package attachkit

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMetadataMarshalExplicitNulls(t *testing.T) {
	p, err := json.Marshal(Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"size":null,"mime_type":null,"filename":null}`
	if string(p) != want {
		t.Errorf("marshal = %s, want %s", p, want)
	}
}

func TestMetadataMarshalOrder(t *testing.T) {
	var md Metadata
	md.SetSize(42)
	md.SetMIMEType("text/plain")
	md.SetFilename("notes.txt")
	md.Extra.Set("sha256", "abc")
	md.Extra.Set("width", 3)
	md.Extra.Set("height", 2)

	p, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"size":42,"mime_type":"text/plain","filename":"notes.txt","sha256":"abc","width":3,"height":2}`
	if string(p) != want {
		t.Errorf("marshal = %s, want %s", p, want)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	var md Metadata
	md.SetSize(7)
	md.SetFilename("a.bin")
	md.Extra.Set("b", "second")
	md.Extra.Set("a", "first")

	p, err := json.Marshal(md)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var restored Metadata
	if err := json.Unmarshal(p, &restored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if restored.Size == nil || *restored.Size != 7 {
		t.Errorf("size = %v, want 7", restored.Size)
	}
	if restored.MIMEType != nil {
		t.Errorf("mime type = %q, want nil", *restored.MIMEType)
	}
	if restored.Filename == nil || *restored.Filename != "a.bin" {
		t.Errorf("filename = %v, want a.bin", restored.Filename)
	}
	if got := restored.Extra.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("extra keys = %v, want [b a]", got)
	}

	// a second marshal must reproduce the document byte for byte
	p2, err := json.Marshal(restored)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(p) != string(p2) {
		t.Errorf("round trip changed document: %s != %s", p, p2)
	}
}

func TestMetadataUnmarshalRejectsNonObject(t *testing.T) {
	var md Metadata
	if err := json.Unmarshal([]byte(`[1,2]`), &md); err == nil {
		t.Error("expected an error for a non-object document")
	}
}

func TestExtraReservedKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a reserved key")
		}
	}()
	var e Extra
	e.Set("size", 1)
}

func TestExtraSetOverwriteKeepsOrder(t *testing.T) {
	var e Extra
	e.Set("a", 1)
	e.Set("b", 2)
	e.Set("a", 3)

	if got := e.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("keys = %v, want [a b]", got)
	}
	if v, _ := e.Get("a"); v != 3 {
		t.Errorf("a = %v, want 3", v)
	}
	if e.Len() != 2 {
		t.Errorf("len = %d, want 2", e.Len())
	}
}
