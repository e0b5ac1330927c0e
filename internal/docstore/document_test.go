package docstore

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDocumentInt(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int64
		wantErr bool
	}{
		{"json integer", json.Number("125000"), 125000, false},
		{"json float truncates", json.Number("12.9"), 12, false},
		{"json exponent", json.Number("1e3"), 1000, false},
		{"float64", 98000.0, 98000, false},
		{"negative float truncates toward zero", -2.7, -2, false},
		{"int", 5, 5, false},
		{"int64", int64(7), 7, false},
		{"true", true, 1, false},
		{"false", false, 0, false},
		{"numeric string", " 42 ", 42, false},
		{"non numeric string", "lots", 0, true},
		{"float string", "1.5", 0, true},
		{"null", nil, 0, true},
		{"nan", math.NaN(), 0, true},
		{"object", map[string]any{}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Document{"chips": tt.value}.Int("chips", 0)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDocumentIntFallback(t *testing.T) {
	got, err := Document{}.Int("chips", 10000)
	if err != nil || got != 10000 {
		t.Fatalf("expected fallback 10000, got %d (%v)", got, err)
	}
}

func TestDocumentString(t *testing.T) {
	doc := Document{"username": "nova", "avatar": nil, "bio": 3}

	if got, err := doc.String("username", "Player"); err != nil || got != "nova" {
		t.Fatalf("unexpected username %q (%v)", got, err)
	}
	if got, err := doc.String("missing", "Player"); err != nil || got != "Player" {
		t.Fatalf("expected fallback, got %q (%v)", got, err)
	}
	if _, err := doc.String("bio", ""); err == nil {
		t.Fatal("expected type error")
	}
	if _, err := doc.String("avatar", ""); err == nil {
		t.Fatal("expected error for null")
	}
}

func TestDocumentOptionalString(t *testing.T) {
	doc := Document{"avatar": "a.png", "bio": nil, "chips": 1}

	avatar, err := doc.OptionalString("avatar")
	if err != nil || avatar == nil || *avatar != "a.png" {
		t.Fatalf("unexpected avatar %v (%v)", avatar, err)
	}
	if bio, err := doc.OptionalString("bio"); err != nil || bio != nil {
		t.Fatalf("expected nil bio, got %v (%v)", bio, err)
	}
	if missing, err := doc.OptionalString("nope"); err != nil || missing != nil {
		t.Fatalf("expected nil, got %v (%v)", missing, err)
	}
	if _, err := doc.OptionalString("chips"); err == nil {
		t.Fatal("expected type error")
	}
}

func TestDecodeDocument(t *testing.T) {
	doc, err := decodeDocument("abc", []byte(`{"chips": 5, "username": "sol"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ID() != "abc" {
		t.Fatalf("expected id abc, got %q", doc.ID())
	}
	if _, ok := doc["chips"].(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", doc["chips"])
	}

	doc, err = decodeDocument("empty", []byte(`null`))
	if err != nil || doc.ID() != "empty" {
		t.Fatalf("expected empty document, got %v (%v)", doc, err)
	}

	if _, err := decodeDocument("bad", []byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
}
