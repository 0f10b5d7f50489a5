package checksum

import (
	"bytes"
	"crypto/fips140"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Calculate
// ---------------------------------------------------------------------------

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantMD5    string
		wantSHA256 string
		wantBLAKE2 string
	}{
		{
			name:       "hello",
			input:      "hello",
			wantMD5:    "5d41402abc4b2a76b9719d911017c592",
			wantSHA256: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
			wantBLAKE2: "324dcf027dd4a30a932c441f365a25e86b173defa4b8e58948253471b81b72cf",
		},
		{
			name:       "empty",
			input:      "",
			wantMD5:    "d41d8cd98f00b204e9800998ecf8427e",
			wantSHA256: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			wantBLAKE2: "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Calculate() error: %v", err)
			}
			if got.SHA256 != tt.wantSHA256 {
				t.Errorf("SHA256 = %q, want %q", got.SHA256, tt.wantSHA256)
			}
			if fips140.Enabled() {
				if got.MD5 != "" || got.BLAKE2b256 != "" {
					t.Errorf("expected MD5 and BLAKE2 to be absent in FIPS mode, got %+v", got)
				}
				return
			}
			if got.MD5 != tt.wantMD5 {
				t.Errorf("MD5 = %q, want %q", got.MD5, tt.wantMD5)
			}
			if got.BLAKE2b256 != tt.wantBLAKE2 {
				t.Errorf("BLAKE2b256 = %q, want %q", got.BLAKE2b256, tt.wantBLAKE2)
			}
		})
	}

	t.Run("input larger than the buffer", func(t *testing.T) {
		data := bytes.Repeat([]byte("a"), BufferSize*3+17)
		streamed, err := Calculate(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Calculate() error: %v", err)
		}
		h := NewHasher()
		h.Write(data)
		if streamed != h.Digests() {
			t.Errorf("streamed digests %+v differ from single write %+v", streamed, h.Digests())
		}
	})

	t.Run("read error is propagated", func(t *testing.T) {
		if _, err := Calculate(errReader{}); err == nil {
			t.Error("Calculate() expected error from failing reader, got nil")
		}
	})
}

func TestCalculateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo-1.0.tar.gz")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := CalculateFile(path)
	if err != nil {
		t.Fatalf("CalculateFile() error: %v", err)
	}
	if got.SHA256 != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("SHA256 = %q", got.SHA256)
	}

	if _, err := CalculateFile(filepath.Join(t.TempDir(), "missing.whl")); err == nil {
		t.Error("CalculateFile() expected error for missing file")
	}
}

// ---------------------------------------------------------------------------
// CalculateSHA256 / VerifySHA256
// ---------------------------------------------------------------------------

func TestCalculateSHA256(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			// echo -n "hello" | sha256sum
			name:  "hello",
			input: "hello",
			want:  "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			// sha256("") = e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855
			name:  "empty string",
			input: "",
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := strings.NewReader(tt.input)
			got, err := CalculateSHA256(reader)
			if err != nil {
				t.Fatalf("CalculateSHA256() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CalculateSHA256(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("same input produces same hash", func(t *testing.T) {
		h1, _ := CalculateSHA256(strings.NewReader("consistent-input"))
		h2, _ := CalculateSHA256(strings.NewReader("consistent-input"))
		if h1 != h2 {
			t.Error("CalculateSHA256() returned different hashes for the same input")
		}
	})

	t.Run("different inputs produce different hashes", func(t *testing.T) {
		h1, _ := CalculateSHA256(strings.NewReader("input-a"))
		h2, _ := CalculateSHA256(strings.NewReader("input-b"))
		if h1 == h2 {
			t.Error("CalculateSHA256() returned same hash for different inputs")
		}
	})

	t.Run("binary data", func(t *testing.T) {
		data := []byte{0x00, 0x01, 0x02, 0x03, 0xFF}
		got, err := CalculateSHA256(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("CalculateSHA256() error: %v", err)
		}
		if len(got) != 64 {
			t.Errorf("CalculateSHA256() returned %d-char hex string, want 64", len(got))
		}
	})

	t.Run("returns lowercase hex", func(t *testing.T) {
		got, _ := CalculateSHA256(strings.NewReader("test"))
		for _, c := range got {
			if c >= 'A' && c <= 'F' {
				t.Errorf("CalculateSHA256() returned uppercase hex: %q", got)
				return
			}
		}
	})

	t.Run("read error is propagated", func(t *testing.T) {
		_, err := CalculateSHA256(errReader{})
		if err == nil {
			t.Error("CalculateSHA256() expected error from failing reader, got nil")
		}
	})
}

func TestVerifySHA256(t *testing.T) {
	t.Run("matching checksum returns true", func(t *testing.T) {
		data := "hello"
		// Pre-computed SHA256 of "hello"
		expected := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
		ok, err := VerifySHA256(strings.NewReader(data), expected)
		if err != nil {
			t.Fatalf("VerifySHA256() error: %v", err)
		}
		if !ok {
			t.Error("VerifySHA256() = false, want true for matching checksum")
		}
	})

	t.Run("wrong checksum returns false", func(t *testing.T) {
		ok, err := VerifySHA256(strings.NewReader("hello"), "0000000000000000000000000000000000000000000000000000000000000000")
		if err != nil {
			t.Fatalf("VerifySHA256() error: %v", err)
		}
		if ok {
			t.Error("VerifySHA256() = true, want false for mismatched checksum")
		}
	})

	t.Run("uppercase expected checksum matches", func(t *testing.T) {
		ok, err := VerifySHA256(strings.NewReader("hello"), "2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824")
		if err != nil {
			t.Fatalf("VerifySHA256() error: %v", err)
		}
		if !ok {
			t.Error("VerifySHA256() = false, want true for uppercase hex")
		}
	})

	t.Run("empty data matches known checksum", func(t *testing.T) {
		emptyHash := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		ok, err := VerifySHA256(strings.NewReader(""), emptyHash)
		if err != nil {
			t.Fatalf("VerifySHA256() error: %v", err)
		}
		if !ok {
			t.Error("VerifySHA256() = false for empty string with correct hash")
		}
	})

	t.Run("read error is propagated", func(t *testing.T) {
		_, err := VerifySHA256(errReader{}, "anyvalue")
		if err == nil {
			t.Error("VerifySHA256() expected error from failing reader, got nil")
		}
	})
}

// errReader is an io.Reader that always returns an error.
type errReader struct{}

func (errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
