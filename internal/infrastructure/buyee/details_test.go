package buyee

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsEnded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"Auction Ended", true},
		{"finished", true},
		{"This auction is CLOSED", true},
		{"Ended 3 hours ago", true},
		{"2 days", false},
		{"5 hours 12 minutes", false},
		{"Time Not Available", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsEnded(tt.in); got != tt.want {
			t.Fatalf("IsEnded(%q) got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExtractDetail_mapsAllFields(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<h1>Seiko Diver 1970s</h1>
		<div class="current_price"><span class="price">33,000 yen</span></div>
		<div class="itemInformation__infoItem"><span class="g-text--attention">1 day</span></div>
		<div class="flexslider"><ul class="slides">
			<li><img src="https://img.example.com/seiko1.jpg?w=600"></li>
			<li><img src="https://img.example.com/seiko2.jpg"></li>
		</ul></div>
	</body></html>`
	doc := mustDoc(t, html)

	productURL := "https://buyee.jp/item/jdirectitems/auction/s123"
	got := extractDetail(doc, productURL)

	if got.Title != "Seiko Diver 1970s" {
		t.Fatalf("Title got %q", got.Title)
	}
	if got.Price != "33,000 yen" {
		t.Fatalf("Price got %q", got.Price)
	}
	if got.TimeRemaining != "1 day" {
		t.Fatalf("TimeRemaining got %q", got.TimeRemaining)
	}
	if got.URL != productURL {
		t.Fatalf("URL got %q", got.URL)
	}
	if len(got.Images) != 2 || got.Images[0] != "https://img.example.com/seiko1.jpg" {
		t.Fatalf("Images got %v", got.Images)
	}
}

func TestExtractDetail_sentinelsOnBarePage(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><div class="unrelated"></div></body></html>`)
	got := extractDetail(doc, "https://buyee.jp/item/x")

	if got.Title != "No Title" {
		t.Fatalf("Title got %q", got.Title)
	}
	if got.Price != "Price Not Available" {
		t.Fatalf("Price got %q", got.Price)
	}
	if got.TimeRemaining != "Time Not Available" {
		t.Fatalf("TimeRemaining got %q", got.TimeRemaining)
	}
	if got.Images != nil {
		t.Fatalf("Images got %v, want nil", got.Images)
	}
}
