package buyee

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"buyee-scraper/internal/domain/model"
)

// Locator は1つの候補ロケータです。
// Attrs が空の場合は要素のテキストを、そうでなければ属性を順に読みます。
type Locator struct {
	Selector string
	Attrs    []string
}

// FieldSpec は1フィールド分の優先順位付きロケータ連鎖です。
// Buyeeのマークアップは予告なく変わるため、連鎖を先頭から評価して
// 最初に空でない値を返したロケータを採用し、全滅した場合はセンチネル値へ
// フォールバックします。例外は投げません。
type FieldSpec struct {
	Chain    []Locator
	Sentinel string
}

// 商品詳細ページ用のロケータ連鎖。
// セレクタはテンプレート差し替えの履歴に合わせて随時追記しています。
var (
	detailTitleSpec = FieldSpec{
		Chain: []Locator{
			{Selector: "h1"},
			{Selector: ".itemName"},
			{Selector: ".itemInfo__name"},
			{Selector: "title"},
		},
		Sentinel: model.NoTitle,
	}

	detailPriceSpec = FieldSpec{
		Chain: []Locator{
			{Selector: ".current_price .price"},
			{Selector: ".price"},
			{Selector: ".itemPrice"},
			{Selector: ".current_price .g-text--attention"},
		},
		Sentinel: model.NoPrice,
	}

	detailTimeSpec = FieldSpec{
		Chain: []Locator{
			{Selector: ".itemInformation__infoItem .g-text--attention"},
			{Selector: ".itemInfo__time span"},
			{Selector: ".timeLeft"},
			{Selector: ".g-text--attention"},
			{Selector: ".itemInformation .g-text"},
		},
		Sentinel: model.NoTime,
	}

	// サムネイル一覧（flexslider）を単独のヒーロー画像より優先します
	detailImageChain = []Locator{
		{Selector: ".flexslider .slides img", Attrs: imageAttrs},
		{Selector: ".flex-control-nav .slides img", Attrs: imageAttrs},
		{Selector: "a.js-smartPhoto img", Attrs: imageAttrs},
		{Selector: ".itemImg img", Attrs: imageAttrs},
		{Selector: ".mainImage img", Attrs: imageAttrs},
		{Selector: ".g-thumbnail__image", Attrs: imageAttrs},
		{Selector: ".itemPhoto img", Attrs: imageAttrs},
		{Selector: "img.primary-image", Attrs: imageAttrs},
	}
)

var imageAttrs = []string{"data-src", "src", "data-original"}

// extractField はロケータ連鎖を順に評価し、最初の空でない値を返します
func extractField(sel *goquery.Selection, spec FieldSpec) string {
	for _, loc := range spec.Chain {
		found := sel.Find(loc.Selector).First()
		if found.Length() == 0 {
			continue
		}
		if len(loc.Attrs) == 0 {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
			continue
		}
		if v := attrValue(found, loc.Attrs); v != "" {
			return v
		}
	}
	return spec.Sentinel
}

// extractImages は画像URL一覧を抽出します。
// 連鎖の先頭から評価し、1件でもヒットしたロケータで確定します。
// 各URLはクエリ文字列を除去し、初出順を保ったまま重複排除します。
func extractImages(sel *goquery.Selection, chain []Locator) []string {
	for _, loc := range chain {
		var images []string
		seen := make(map[string]bool)
		sel.Find(loc.Selector).Each(func(_ int, img *goquery.Selection) {
			v := attrValue(img, loc.Attrs)
			if v == "" {
				return
			}
			v = stripQuery(v)
			if !seen[v] {
				seen[v] = true
				images = append(images, v)
			}
		})
		if len(images) > 0 {
			return images
		}
	}
	return nil
}

// attrValue は属性を順に試し、最初の空でない値を返します
func attrValue(sel *goquery.Selection, attrs []string) string {
	for _, attr := range attrs {
		if v := strings.TrimSpace(sel.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// stripQuery はサイズ指定などのクエリ文字列を除去します
func stripQuery(rawURL string) string {
	return strings.SplitN(rawURL, "?", 2)[0]
}
