package repository

import (
	"context"

	"buyee-scraper/internal/domain/model"
)

// ListingRepository は商品情報の取得方法を抽象化します。
// 実装がスクレイピングなのか、キャッシュなのか、外部APIなのかをドメイン層は知りません。
// これにより、腐敗防止層（Anti-Corruption Layer）のパターンを実現します。
type ListingRepository interface {
	// Search は検索条件に一致する商品一覧をページ横断で集約して返します。
	// ページ単位・商品単位の失敗はスキップされ、ベストエフォートの集約が返ります。
	Search(ctx context.Context, query model.SearchQuery) ([]model.Listing, error)

	// FetchDetails は個別商品ページから完全なフィールドセットを取得します。
	// 第2戻り値は、残り時間テキストから終了済みと判定されたURLの一覧です。
	FetchDetails(ctx context.Context, urls []string) ([]model.Listing, []string, error)
}
