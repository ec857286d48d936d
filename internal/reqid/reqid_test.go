package reqid

import (
	"context"
	"testing"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantBack string
	}{
		{"stores and retrieves id", "abc12345", "abc12345"},
		{"empty context returns empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.id != "" {
				ctx = With(ctx, tt.id)
			}
			got := From(ctx)
			if got != tt.wantBack {
				t.Errorf("From() = %q, want %q", got, tt.wantBack)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	id := Generate()
	if len(id) != 16 {
		t.Errorf("Generate() length = %d, want 16", len(id))
	}
	if Generate() == id {
		t.Error("Generate() returned the same id twice")
	}
}
