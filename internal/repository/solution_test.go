package repository

import "testing"

func TestHashRequest(t *testing.T) {
	a := HashRequest([]byte(`{"year":2025,"start_day":10}`))
	b := HashRequest([]byte(`{"year":2025,"start_day":10}`))
	c := HashRequest([]byte(`{"year":2025,"start_day":11}`))

	if a != b {
		t.Error("identical bodies must hash identically")
	}
	if a == c {
		t.Error("different bodies must hash differently")
	}
	// SHA-256 的十六进制形式固定 64 字符
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
