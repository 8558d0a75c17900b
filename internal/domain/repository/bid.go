package repository

import (
	"context"

	"buyee-scraper/internal/domain/model"
)

// BidLedger は追跡中入札の永続的な台帳です。
// 台帳ドキュメントの唯一の所有者であり、他のコンポーネントは
// この操作を通じてのみ入札レコードへアクセスします。
type BidLedger interface {
	// Upsert は ProductURL をキーとした置換セマンティクスで保存します。
	Upsert(record model.BidRecord) error

	// ReadAll は台帳の全レコードを返します。台帳ファイルが無い場合は空として扱います。
	ReadAll() ([]model.BidRecord, error)

	// Prune は指定されたURL集合に一致するレコードを削除します。
	// 空集合や一致なしは明示的にログされるno-opです。
	Prune(urls []string) error
}

// BidGateway は入札UIフローの操作を抽象化します。
type BidGateway interface {
	// PlaceBid は入札フローを実行します。「入札ボタンが無い」などの業務的な失敗は
	// BidPlacement.Success=false として返り、errorはセッション確立失敗などの致命的な場合のみです。
	PlaceBid(ctx context.Context, productURL string, amount float64) (*model.BidPlacement, error)

	// UpdateBid は追跡中URLの価格・残り時間だけを軽量に再取得します。
	// 失敗は BidUpdate.Error としてデータで返ります。
	UpdateBid(ctx context.Context, productURL string) model.BidUpdate

	// Login は認証UIフローを実行し、セッション資格情報を永続化します。
	Login(ctx context.Context, username, password string) error
}
