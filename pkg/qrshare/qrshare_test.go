package qrshare

import (
	"bytes"
	"testing"
)

// TestEncodePNG confirms we hand back a real PNG for a typical share URL
// with a long query string.
func TestEncodePNG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	url := "https://defects.example/?subdivision=WILKIE&dtn_Status=Open&mode=markers&basemap=OpenTopoMap"
	if err := EncodePNG(&buf, url, Options{}); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}

	pngMagic := []byte{0x89, 'P', 'N', 'G'}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Errorf("output does not start with PNG magic: % x", buf.Bytes()[:8])
	}
}

// TestEncodePNGDefaults verifies the zero Options still produce output,
// so handlers can pass Options{} without thinking.
func TestEncodePNGDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := EncodePNG(&buf, "https://defects.example/", Options{TargetPx: 128}); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("no PNG bytes written")
	}
}
