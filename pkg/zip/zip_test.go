package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	data, err := ArchiveAssets([]Asset{
		{Filename: "subject.png", MIME: "image/png", Data: []byte("subject")},
		{Filename: "result.png", MIME: "image/png", Data: []byte("result")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets() error: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d files, want 2", len(zr.File))
	}
	f, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer f.Close()
	body, _ := io.ReadAll(f)
	if zr.File[1].Name != "result.png" || string(body) != "result" {
		t.Fatalf("entry = %s %q", zr.File[1].Name, body)
	}
}

func TestArchiveAssetsRejectsDuplicates(t *testing.T) {
	_, err := ArchiveAssets([]Asset{{Filename: "a.png"}, {Filename: "a.png"}})
	if err == nil {
		t.Fatalf("ArchiveAssets() expected duplicate error")
	}
}
