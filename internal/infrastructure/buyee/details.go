package buyee

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"buyee-scraper/internal/domain/model"
	"buyee-scraper/internal/infrastructure/browser"
)

// 残り時間テキストに対する終了判定の語彙。
// 大文字小文字を無視した部分一致で、本家の表記ゆれに合わせたベストエフォートです。
var endedVocabulary = []string{"finished", "ended", "closed"}

// IsEnded は抽出済みの残り時間テキストからオークション終了を判定します
func IsEnded(timeRemaining string) bool {
	lower := strings.ToLower(timeRemaining)
	for _, word := range endedVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// FetchDetails は個別商品ページから完全なフィールドセットを取得します。
// ナビゲーション失敗やタイムアウトはそのURLだけをスキップし、成功した分を常に返します。
// 第2戻り値は終了済みと判定されたURLの一覧で、呼び出し側が台帳の間引きに使います。
func (s *listingScraper) FetchDetails(ctx context.Context, urls []string) ([]model.Listing, []string, error) {
	session, err := s.sessions.Acquire(browser.Options{})
	if err != nil {
		return nil, nil, err
	}
	defer session.Release()

	var details []model.Listing
	var ended []string

	for _, productURL := range urls {
		if ctx.Err() != nil {
			break
		}
		listing, err := s.fetchDetail(session, productURL)
		if err != nil {
			s.logger.Warn("failed to scrape details, skipping", "url", productURL, "error", err)
			continue
		}
		details = append(details, listing)
		if IsEnded(listing.TimeRemaining) {
			s.logger.Info("auction ended", "url", productURL, "timeRemaining", listing.TimeRemaining)
			ended = append(ended, productURL)
		}
	}

	return details, ended, nil
}

func (s *listingScraper) fetchDetail(session *browser.Session, productURL string) (model.Listing, error) {
	page, err := session.NewPage()
	if err != nil {
		return model.Listing{}, err
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			s.logger.Warn("failed to close page", "error", closeErr)
		}
	}()

	if _, err := page.Goto(productURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(detailGotoTimeoutMs),
	}); err != nil {
		return model.Listing{}, fmt.Errorf("failed to navigate: %w", err)
	}
	page.WaitForTimeout(detailSettleMs)

	doc, err := pageDocument(page)
	if err != nil {
		return model.Listing{}, err
	}
	return extractDetail(doc, productURL), nil
}

// extractDetail は詳細ページのドキュメントからListingを構築します。
// 各フィールドはロケータ連鎖で抽出し、欠けていてもセンチネル値で構造的に完全です。
func extractDetail(doc *goquery.Document, productURL string) model.Listing {
	root := doc.Selection
	return model.Listing{
		Title:         extractField(root, detailTitleSpec),
		Price:         extractField(root, detailPriceSpec),
		TimeRemaining: extractField(root, detailTimeSpec),
		URL:           productURL,
		Images:        extractImages(root, detailImageChain),
	}
}
