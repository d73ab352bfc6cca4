package packet

import (
	"errors"
	"testing"
)

func TestDecodeBLE_SampleOrder(t *testing.T) {
	// sample0 = 0x0102 (байты 2,3), sample1 = 0x0304 (байты 0,1)
	frame := []byte{0x04, 0x03, 0x02, 0x01}

	got, err := DecodeBLE(frame)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(got))
	}
	if got[0] != 0x0102 {
		t.Errorf("Expected first sample %d, got %v", 0x0102, got[0])
	}
	if got[1] != 0x0304 {
		t.Errorf("Expected second sample %d, got %v", 0x0304, got[1])
	}
}

func TestDecodeBLE_ConcatenatedFrames(t *testing.T) {
	buf := []byte{
		0x00, 0x08, 0xFF, 0x07, // 2047, 2048
		0x10, 0x00, 0x20, 0x00, // 32, 16
	}

	got, err := DecodeBLE(buf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []float64{2047, 2048, 32, 16}
	if len(got) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDecodeBLE_InvalidLength(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 7} {
		_, err := DecodeBLE(make([]byte, n))
		if !errors.Is(err, ErrFrameLength) {
			t.Errorf("Length %d: expected ErrFrameLength, got %v", n, err)
		}
	}
}

func TestEncodeBLE_RoundTrip(t *testing.T) {
	samples := []uint16{100, 200, 4095, 0, 65535, 1}

	buf, err := EncodeBLE(samples)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(buf) != 12 {
		t.Fatalf("Expected 12 bytes, got %d", len(buf))
	}

	got, err := DecodeBLE(buf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, s := range samples {
		if got[i] != float64(s) {
			t.Errorf("Sample %d: expected %d, got %v", i, s, got[i])
		}
	}

	if _, err := EncodeBLE([]uint16{1, 2, 3}); !errors.Is(err, ErrFrameLength) {
		t.Errorf("Expected ErrFrameLength for odd count, got %v", err)
	}
}

func TestPacked11_Layout(t *testing.T) {
	// A = 0x5AB, B = 0x3CD
	buf, err := EncodePacked11([]uint16{0x5AB, 0x3CD})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []byte{0xAB, 0x5<<5 | 0x3, 0xCD}
	if len(buf) != len(want) {
		t.Fatalf("Expected %d bytes, got %d", len(want), len(buf))
	}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("Byte %d: expected %#x, got %#x", i, want[i], buf[i])
		}
	}
}

func TestPacked11_RoundTripOddCount(t *testing.T) {
	samples := []uint16{0, 2047, 1024, 7, 1500}

	buf, err := EncodePacked11(samples)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// две полные пары по 3 байта и хвост из 2 байт
	if len(buf) != 8 {
		t.Fatalf("Expected 8 bytes, got %d", len(buf))
	}

	got, err := DecodePacked11(buf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(got))
	}
	for i, s := range samples {
		if got[i] != float64(s) {
			t.Errorf("Sample %d: expected %d, got %v", i, s, got[i])
		}
	}
}

func TestPacked11_Errors(t *testing.T) {
	if _, err := EncodePacked11([]uint16{2048}); !errors.Is(err, ErrSampleRange) {
		t.Errorf("Expected ErrSampleRange, got %v", err)
	}
	if _, err := DecodePacked11([]byte{1, 2, 3, 4}); !errors.Is(err, ErrFrameLength) {
		t.Errorf("Expected ErrFrameLength, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatBLE, false},
		{"ble", FormatBLE, false},
		{"packed11", FormatPacked11, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q): unexpected error state %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}

	if _, err := Decode("csv", []byte{1, 2, 3, 4}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
	if FrameSize(FormatPacked11) != 3 || FrameSize(FormatBLE) != 4 {
		t.Error("Unexpected frame sizes")
	}
}
