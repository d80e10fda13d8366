package format_test

import (
	"testing"

	"vidbee/internal/format"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int64
		wantOk bool
	}{
		{"bytes", "512B", 512, true},
		{"decimal kilobytes", "1KB", 1000, true},
		{"binary kibibytes", "1KiB", 1024, true},
		{"decimal megabytes fractional", "1.5MB", 1_500_000, true},
		{"binary mebibytes", "2MiB", 2 * 1024 * 1024, true},
		{"approx prefix", "~10.2MiB", 10_695_475, true},
		{"gigabytes", "1GB", 1_000_000_000, true},
		{"binary gibibytes", "1GiB", 1024 * 1024 * 1024, true},
		{"terabytes", "1TB", 1_000_000_000_000, true},
		{"lowercase unit", "1.5mb", 1_500_000, true},
		{"no unit", "1024", 0, false},
		{"empty string", "", 0, false},
		{"garbage", "not-a-size", 0, false},
		{"unit without number", "MB", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := format.ParseByteSize(tt.input)
			if ok != tt.wantOk {
				t.Fatalf("ParseByteSize(%q) ok = %v, want %v", tt.input, ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("ParseByteSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatByteSize_RoundTrip(t *testing.T) {
	values := []int64{512, 1000, 1_500_000, 1_000_000_000, 250_000}

	for _, v := range values {
		formatted := format.FormatByteSize(v)
		parsed, ok := format.ParseByteSize(formatted)
		if !ok {
			t.Fatalf("FormatByteSize(%d) = %q did not parse back", v, formatted)
		}
		if parsed != v {
			t.Errorf("round-trip FormatByteSize(%d) -> %q -> %d, want %d", v, formatted, parsed, v)
		}
	}
}

func TestLogBytes(t *testing.T) {
	if got := format.LogBytes(1024); got == "" {
		t.Error("LogBytes should not return an empty string")
	}
	if got := format.LogBytes(-5); got == "" {
		t.Error("LogBytes should handle negative input without panicking")
	}
}
