package invoice

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain decimal", raw: "45.30", want: "45.3"},
		{name: "italian comma", raw: "45,30", want: "45.3"},
		{name: "euro prefix", raw: "€ 45,30", want: "45.3"},
		{name: "euro suffix", raw: "45,30 €", want: "45.3"},
		{name: "thousands separator", raw: "1.234,56", want: "1234.56"},
		{name: "integer", raw: "120", want: "120"},
		{name: "whitespace", raw: "  87,10 ", want: "87.1"},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.raw, got.String(), tt.want)
			}
		})
	}
}

func TestInvoiceInWindow(t *testing.T) {
	start, _ := ParseDate("2025-03-01")
	end, _ := ParseDate("2025-03-31")

	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{name: "inside", doc: "2025-03-15", want: true},
		{name: "on start boundary", doc: "2025-03-01", want: true},
		{name: "on end boundary", doc: "2025-03-31", want: true},
		{name: "before", doc: "2025-02-28", want: false},
		{name: "after", doc: "2025-04-01", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDate(tt.doc)
			if err != nil {
				t.Fatal(err)
			}
			inv := Invoice{ID: "x", DocumentDate: doc}
			if got := inv.InWindow(start, end); got != tt.want {
				t.Errorf("InWindow(%s) = %v, want %v", tt.doc, got, tt.want)
			}
		})
	}
}

func TestFilterWindow(t *testing.T) {
	mk := func(id, doc string) Invoice {
		d, err := ParseDate(doc)
		if err != nil {
			t.Fatal(err)
		}
		return Invoice{ID: id, DocumentDate: d}
	}

	start, _ := ParseDate("2025-01-10")
	end, _ := ParseDate("2025-01-20")

	in := []Invoice{
		mk("a", "2025-01-05"),
		mk("b", "2025-01-10"),
		mk("c", "2025-01-15"),
		mk("d", "2025-01-20"),
		mk("e", "2025-01-25"),
	}

	got := FilterWindow(in, start, end)
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("FilterWindow returned %d invoices, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("FilterWindow[%d] = %s, want %s (portal order must survive)", i, got[i].ID, id)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-06-03")
	if err != nil {
		t.Fatal(err)
	}
	if want := Date(2025, time.June, 3); !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}

	if _, err := ParseDate("03/06/2025"); err == nil {
		t.Error("ParseDate accepted a non-ISO date")
	}
}
