package buyee

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to build doc: %v", err)
	}
	return doc
}

func TestExtractField_firstNonEmptyWins(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<h1>  Vintage Camera  </h1>
		<div class="itemName">Should Not Win</div>
	</body></html>`
	doc := mustDoc(t, html)

	got := extractField(doc.Selection, detailTitleSpec)
	if got != "Vintage Camera" {
		t.Fatalf("got %q, want %q", got, "Vintage Camera")
	}
}

func TestExtractField_fallsThroughEmptyMatches(t *testing.T) {
	t.Parallel()

	// h1は存在するが空文字。連鎖は次の候補へ進む
	html := `<html><body>
		<h1>   </h1>
		<div class="itemName">Fallback Title</div>
	</body></html>`
	doc := mustDoc(t, html)

	got := extractField(doc.Selection, detailTitleSpec)
	if got != "Fallback Title" {
		t.Fatalf("got %q, want %q", got, "Fallback Title")
	}
}

func TestExtractField_sentinelWhenChainExhausted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec FieldSpec
		want string
	}{
		{"title", detailTitleSpec, "No Title"},
		{"price", detailPriceSpec, "Price Not Available"},
		{"time", detailTimeSpec, "Time Not Available"},
	}

	doc := mustDoc(t, `<div class="unrelated"></div>`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := extractField(doc.Selection, tt.spec); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractImages_stripsQueryAndDeduplicates(t *testing.T) {
	t.Parallel()

	html := `<div class="flexslider"><ul class="slides">
		<li><img src="https://img.example.com/a.jpg?pri=l&w=300"></li>
		<li><img src="https://img.example.com/a.jpg?pri=l&w=600"></li>
		<li><img data-src="https://img.example.com/b.jpg"></li>
		<li><img alt="no source"></li>
	</ul></div>`
	doc := mustDoc(t, html)

	got := extractImages(doc.Selection, detailImageChain)
	want := []string{"https://img.example.com/a.jpg", "https://img.example.com/b.jpg"}
	if len(got) != len(want) {
		t.Fatalf("got %d images, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("image[%d] got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractImages_thumbnailListPreferredOverHeroImage(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<div class="mainImage"><img src="https://img.example.com/hero.jpg"></div>
		<div class="flexslider"><ul class="slides">
			<li><img src="https://img.example.com/thumb1.jpg"></li>
			<li><img src="https://img.example.com/thumb2.jpg"></li>
		</ul></div>
	</body></html>`
	doc := mustDoc(t, html)

	got := extractImages(doc.Selection, detailImageChain)
	if len(got) != 2 || got[0] != "https://img.example.com/thumb1.jpg" {
		t.Fatalf("expected thumbnail list to win, got %v", got)
	}
}

func TestExtractImages_nilWhenNothingMatches(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div class="itemName">text only</div>`)
	if got := extractImages(doc.Selection, detailImageChain); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestAttrValue_attrPriority(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<img data-src="https://a.example/lazy.jpg" src="placeholder.gif">`)
	img := doc.Find("img").First()

	if got := attrValue(img, imageAttrs); got != "https://a.example/lazy.jpg" {
		t.Fatalf("got %q, want data-src value", got)
	}
}

func TestStripQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://a.example/x.jpg?w=300&h=300", "https://a.example/x.jpg"},
		{"https://a.example/x.jpg", "https://a.example/x.jpg"},
		{"/relative/x.jpg?s=1", "/relative/x.jpg"},
	}
	for _, tt := range tests {
		if got := stripQuery(tt.in); got != tt.want {
			t.Fatalf("stripQuery(%q) got %q, want %q", tt.in, got, tt.want)
		}
	}
}
