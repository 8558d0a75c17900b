package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"buyee-scraper/internal/domain/model"
	"buyee-scraper/internal/domain/repository"
)

const invalidBidMessage = "Product URL must be valid, and bid amount must be a positive number"

// BidUsecase は入札の実行・更新・台帳管理のビジネスロジックを担当します
type BidUsecase struct {
	gateway  repository.BidGateway
	ledger   repository.BidLedger
	listings repository.ListingRepository
	pacing   time.Duration
	sleep    func(time.Duration)
	logger   *slog.Logger
}

// NewBidUsecase は新しいBidUsecaseインスタンスを作成します。
// pacing は更新ループで各URLの間に挟むディレイです。
func NewBidUsecase(
	gateway repository.BidGateway,
	ledger repository.BidLedger,
	listings repository.ListingRepository,
	pacing time.Duration,
	logger *slog.Logger,
) *BidUsecase {
	return &BidUsecase{
		gateway:  gateway,
		ledger:   ledger,
		listings: listings,
		pacing:   pacing,
		sleep:    time.Sleep,
		logger:   logger,
	}
}

// PlaceBid は入札フローを実行し、成功時のみ台帳へ書き込みます。
// 入力不正と「入札ボタン無し」はSuccess=falseの構造化された失敗として返り、
// errorになるのはセッション確立失敗などの致命的な場合だけです。
func (u *BidUsecase) PlaceBid(ctx context.Context, productURL string, amount float64) (*model.BidPlacement, error) {
	if productURL == "" || amount <= 0 {
		return &model.BidPlacement{Success: false, Message: invalidBidMessage}, nil
	}

	placement, err := u.gateway.PlaceBid(ctx, productURL, amount)
	if err != nil {
		return nil, err
	}
	if !placement.Success {
		return placement, nil
	}

	if placement.Details != nil {
		if err := u.ledger.Upsert(*placement.Details); err != nil {
			return nil, fmt.Errorf("bid placed but failed to record: %w", err)
		}
	}
	return placement, nil
}

// UpdateBids は追跡中URLの価格・残り時間を順番に再取得します。
// レート制限への配慮として各URLの間に固定ディレイを挟み、
// 1件の失敗がバッチを止めないよう失敗はデータとして集めます。
func (u *BidUsecase) UpdateBids(ctx context.Context, urls []string) []model.BidUpdate {
	updates := make([]model.BidUpdate, 0, len(urls))
	for i, productURL := range urls {
		if i > 0 {
			u.sleep(u.pacing)
		}
		updates = append(updates, u.gateway.UpdateBid(ctx, productURL))
	}
	return updates
}

// FetchDetails は個別商品ページの詳細を取得し、終了済みと判定された
// オークションをバッチ完了後にまとめて台帳から間引きます。
func (u *BidUsecase) FetchDetails(ctx context.Context, urls []string) ([]model.Listing, error) {
	details, ended, err := u.listings.FetchDetails(ctx, urls)
	if err != nil {
		return nil, err
	}
	if err := u.ledger.Prune(ended); err != nil {
		// 詳細の取得自体は成功しているため、間引きの失敗で結果を捨てない
		u.logger.Warn("failed to prune ended auctions", "error", err)
	}
	return details, nil
}

// Login は認証フローを実行してセッション資格情報を永続化します
func (u *BidUsecase) Login(ctx context.Context, username, password string) error {
	return u.gateway.Login(ctx, username, password)
}

// ReadLedger は追跡中の入札レコードをすべて返します
func (u *BidUsecase) ReadLedger() ([]model.BidRecord, error) {
	return u.ledger.ReadAll()
}
