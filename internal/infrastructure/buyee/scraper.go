package buyee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"buyee-scraper/internal/domain/model"
	"buyee-scraper/internal/domain/repository"
	"buyee-scraper/internal/infrastructure/browser"
)

const (
	// Buyeeの検索結果は1ページ20件
	itemsPerPage = 20
	// 巨大な検索結果での暴走クロールを防ぐハードキャップ
	maxSearchPages = 10

	searchGotoTimeoutMs = 50000
	cardWaitTimeoutMs   = 10000
	detailGotoTimeoutMs = 45000
	// 遅延ロードされる画像・価格が落ち着くまでの猶予
	detailSettleMs = 3000
)

// カテゴリによって配信されるテンプレートが異なるため、
// 商品カードのコンテナは複数の候補を許容します
var cardContainerSelectors = []string{
	".itemCard",
	".itemList__item",
	".g-itemsList .itemCard",
}

// 検索結果カード用のロケータ連鎖
var (
	cardLinkSelector = ".itemCard__itemName a"

	cardTitleSpec = FieldSpec{
		Chain:    []Locator{{Selector: ".itemCard__itemName a"}},
		Sentinel: model.NoTitle,
	}
	cardPriceSpec = FieldSpec{
		Chain:    []Locator{{Selector: ".g-price"}},
		Sentinel: model.NoPrice,
	}
	cardTimeSpec = FieldSpec{
		Chain:    []Locator{{Selector: ".g-text--attention"}},
		Sentinel: model.NoTime,
	}
	cardImageChain = []Locator{
		{Selector: ".g-thumbnail__image", Attrs: imageAttrs},
	}
)

// 結果件数は「1 - 20 / 2,154」形式のテキストで表示される
const resultCountSelector = ".result-num"

var totalMatchesRe = regexp.MustCompile(`/\s*([0-9,]+)`)

// listingScraper はBuyeeのHTMLをスクレイピングして商品情報を取得する実装です。
// 腐敗防止層（Anti-Corruption Layer）として、外部サイトの不安定な構造を
// ドメインモデルに変換する責務を持ちます。
type listingScraper struct {
	sessions  *browser.Manager
	baseURL   string
	cachePath string
	logger    *slog.Logger
}

// NewListingScraper は新しいListingRepositoryの実装を作成します。
// cachePath が空でない場合、検索の集約結果を確認用のキャッシュファイルへ保存します
// （正当性には関与しない非権威的キャッシュです）。
func NewListingScraper(sessions *browser.Manager, cachePath string, logger *slog.Logger) repository.ListingRepository {
	return newListingScraper(sessions, "https://buyee.jp", cachePath, logger)
}

// newListingScraper はテスト容易性のための内部コンストラクタです
func newListingScraper(sessions *browser.Manager, baseURL, cachePath string, logger *slog.Logger) *listingScraper {
	return &listingScraper{
		sessions:  sessions,
		baseURL:   baseURL,
		cachePath: cachePath,
		logger:    logger,
	}
}

// Search は検索条件に一致する商品をページ横断で集約して返します。
// カードの待機がタイムアウトしたページは0件としてスキップし、後続ページの
// クロールは継続します。致命的なのは検索URL自体がロードできない場合のみです。
func (s *listingScraper) Search(ctx context.Context, query model.SearchQuery) ([]model.Listing, error) {
	if strings.TrimSpace(query.Term) == "" {
		return nil, errors.New("search term is required")
	}

	session, err := s.sessions.Acquire(browser.Options{})
	if err != nil {
		return nil, err
	}
	defer session.Release()

	page, err := session.NewPage()
	if err != nil {
		return nil, err
	}

	firstURL := s.buildSearchURL(query, 1)
	s.logger.Info("searching", "url", firstURL)
	if _, err := page.Goto(firstURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(searchGotoTimeoutMs),
	}); err != nil {
		return nil, fmt.Errorf("failed to load search page: %w", err)
	}

	total := s.readTotalMatches(page)
	pageCount := computePageCount(total, query.PageCap)
	s.logger.Info("total matches detected", "term", query.Term, "total", total, "pages", pageCount)

	var aggregate []model.Listing
	seen := make(map[string]bool)

	for current := 1; current <= pageCount; current++ {
		if ctx.Err() != nil {
			break
		}
		if current > 1 {
			pageURL := s.buildSearchURL(query, current)
			if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
				WaitUntil: playwright.WaitUntilStateDomcontentloaded,
				Timeout:   playwright.Float(searchGotoTimeoutMs),
			}); err != nil {
				s.logger.Warn("failed to load search page, skipping", "page", current, "error", err)
				continue
			}
		}

		if _, err := page.WaitForSelector(strings.Join(cardContainerSelectors, ", "), playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(cardWaitTimeoutMs),
		}); err != nil {
			s.logger.Warn("no items found on page, skipping", "page", current)
			continue
		}

		doc, err := pageDocument(page)
		if err != nil {
			s.logger.Warn("failed to read page content, skipping", "page", current, "error", err)
			continue
		}

		listings := s.extractSearchCards(doc)
		s.logger.Info("items found", "page", current, "count", len(listings))
		for _, listing := range listings {
			if !seen[listing.URL] {
				seen[listing.URL] = true
				aggregate = append(aggregate, listing)
			}
		}
	}

	s.persistAggregate(aggregate)
	return aggregate, nil
}

// buildSearchURL は検索ワード・カテゴリ・価格帯からクエリURLを構築します。
// 価格帯は未指定なら空のまま付与せず、URLから省略します。
func (s *listingScraper) buildSearchURL(query model.SearchQuery, page int) string {
	searchURL := fmt.Sprintf("%s/item/search/query/%s", s.baseURL, url.PathEscape(query.Term))
	if query.Category != "" {
		searchURL += "/category/" + url.PathEscape(query.Category)
	}

	params := url.Values{}
	if query.MinPrice != "" {
		params.Set("aucminprice", query.MinPrice)
	}
	if query.MaxPrice != "" {
		params.Set("aucmaxprice", query.MaxPrice)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("translationType", "98")

	return searchURL + "?" + params.Encode()
}

// readTotalMatches は結果件数表示から総マッチ数を読み取ります。要素が無ければ0です。
func (s *listingScraper) readTotalMatches(page playwright.Page) int {
	loc := page.Locator(resultCountSelector).First()
	if count, err := loc.Count(); err != nil || count == 0 {
		return 0
	}
	text, err := loc.TextContent()
	if err != nil {
		return 0
	}
	return parseTotalMatches(text)
}

// parseTotalMatches は「<lo> - <hi> / <total>」形式のテキストから総数を取り出します
func parseTotalMatches(text string) int {
	m := totalMatchesRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// computePageCount はクロールするページ数を決定します。
// クエリに明示的な上限があればそれを優先し、なければ
// min(ceil(total/20), 10) で、20件未満（0件含む）は1ページです。
func computePageCount(totalMatches, pageCap int) int {
	if pageCap > 0 {
		return pageCap
	}
	if totalMatches < itemsPerPage {
		return 1
	}
	pages := (totalMatches + itemsPerPage - 1) / itemsPerPage
	if pages > maxSearchPages {
		return maxSearchPages
	}
	return pages
}

// extractSearchCards はHTMLドキュメントから商品カードを抽出します。
// URLの取れないカードは追跡不能なためスキップします（商品単位の失敗は伝播しません）。
func (s *listingScraper) extractSearchCards(doc *goquery.Document) []model.Listing {
	var cards *goquery.Selection
	for _, sel := range cardContainerSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var listings []model.Listing
	cards.Each(func(_ int, card *goquery.Selection) {
		href := strings.TrimSpace(card.Find(cardLinkSelector).First().AttrOr("href", ""))
		if href == "" {
			return
		}
		listings = append(listings, model.Listing{
			Title:         extractField(card, cardTitleSpec),
			Price:         extractField(card, cardPriceSpec),
			TimeRemaining: extractField(card, cardTimeSpec),
			URL:           s.canonicalURL(href),
			Images:        extractImages(card, cardImageChain),
		})
	})
	return listings
}

func (s *listingScraper) canonicalURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return s.baseURL + href
}

// persistAggregate は集約結果をキャッシュファイルへ保存します。失敗しても検索は成功扱いです。
func (s *listingScraper) persistAggregate(listings []model.Listing) {
	if s.cachePath == "" {
		return
	}
	data, err := json.MarshalIndent(listings, "", "  ")
	if err == nil {
		err = os.WriteFile(s.cachePath, data, 0o644)
	}
	if err != nil {
		s.logger.Warn("failed to persist search cache", "path", s.cachePath, "error", err)
		return
	}
	s.logger.Info("saved search results", "path", s.cachePath, "count", len(listings))
}

// pageDocument はページの現在のHTMLをgoqueryドキュメントとして取得します。
// 以降の抽出はこのスナップショットに対する純粋な読み取りになります。
func pageDocument(page playwright.Page) (*goquery.Document, error) {
	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
