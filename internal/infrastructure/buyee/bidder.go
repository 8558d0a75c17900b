package buyee

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/playwright-community/playwright-go"

	"buyee-scraper/internal/domain/model"
	"buyee-scraper/internal/domain/repository"
	"buyee-scraper/internal/infrastructure/browser"
)

const (
	bidButtonSelector = "#bidNow"
	bidAmountSelector = `input[name="bidYahoo[price]"]`

	loginPath           = "/signup/login"
	loginMailSelector   = "#login_mailAddress"
	loginPasswdSelector = "#login_password"
	bidGotoTimeoutMs    = 30000
	bidSettleMs         = 2000
	noBidButtonMessage  = `No "Bid Now" button found on the page`
)

// bidGateway は入札UIフローをブラウザ操作で実行する実装です。
// 入札・更新は永続化済みの資格情報スナップショットから復元したセッションで行います。
type bidGateway struct {
	sessions       *browser.Manager
	baseURL        string
	credentialPath string
	logger         *slog.Logger
}

// NewBidGateway は新しいBidGatewayの実装を作成します
func NewBidGateway(sessions *browser.Manager, credentialPath string, logger *slog.Logger) repository.BidGateway {
	return &bidGateway{
		sessions:       sessions,
		baseURL:        "https://buyee.jp",
		credentialPath: credentialPath,
		logger:         logger,
	}
}

// PlaceBid は商品ページへ遷移して入札フローを実行します。
// 入札ボタンが見つからない場合は「入札不可」をSuccess=falseで報告します
// （終了済みや対象外の商品タイプを示す業務的な失敗であり、エラーではありません）。
// 成功時は台帳レコード用のメタデータをDetailsへ詰めて返します。
func (g *bidGateway) PlaceBid(ctx context.Context, productURL string, amount float64) (*model.BidPlacement, error) {
	session, err := g.sessions.Acquire(browser.Options{StorageStatePath: g.credentialPath})
	if err != nil {
		return nil, err
	}
	defer session.Release()

	page, err := session.NewPage()
	if err != nil {
		return nil, err
	}

	if _, err := page.Goto(productURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(bidGotoTimeoutMs),
	}); err != nil {
		return nil, fmt.Errorf("failed to navigate to listing: %w", err)
	}
	page.WaitForTimeout(bidSettleMs)

	bidButton := page.Locator(bidButtonSelector)
	count, err := bidButton.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to query bid button: %w", err)
	}
	if count == 0 {
		g.logger.Warn("no bid button found on the page", "url", productURL)
		return &model.BidPlacement{Success: false, Message: noBidButtonMessage}, nil
	}

	// 台帳レコード用のメタデータは入札操作の前に控えておく
	doc, err := pageDocument(page)
	if err != nil {
		return nil, err
	}
	title := extractField(doc.Selection, detailTitleSpec)
	timeRemaining := extractField(doc.Selection, detailTimeSpec)
	var thumbnail string
	if images := extractImages(doc.Selection, detailImageChain); len(images) > 0 {
		thumbnail = images[0]
	}

	if err := bidButton.Click(); err != nil {
		return nil, fmt.Errorf("failed to click bid button: %w", err)
	}

	bidInput := page.Locator(bidAmountSelector)
	if err := bidInput.Clear(); err != nil {
		return nil, fmt.Errorf("failed to clear bid amount field: %w", err)
	}
	if err := bidInput.Fill(formatAmount(amount)); err != nil {
		return nil, fmt.Errorf("failed to fill bid amount: %w", err)
	}

	record := model.BidRecord{
		ProductURL:   productURL,
		BidAmount:    amount,
		Timestamp:    timeRemaining,
		Title:        title,
		ThumbnailURL: thumbnail,
	}
	return &model.BidPlacement{
		Success: true,
		Message: fmt.Sprintf("Bid of %s placed successfully", formatAmount(amount)),
		Details: &record,
	}, nil
}

// UpdateBid は追跡中URLの価格と残り時間だけを軽量に再取得します。
// 呼び出し側は多数のURLを順番に処理するため、失敗はBidUpdate.Errorとして返します。
func (g *bidGateway) UpdateBid(ctx context.Context, productURL string) model.BidUpdate {
	session, err := g.sessions.Acquire(browser.Options{StorageStatePath: g.credentialPath})
	if err != nil {
		return model.BidUpdate{ProductURL: productURL, Error: err.Error()}
	}
	defer session.Release()

	page, err := session.NewPage()
	if err != nil {
		return model.BidUpdate{ProductURL: productURL, Error: err.Error()}
	}

	if _, err := page.Goto(productURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(bidGotoTimeoutMs),
	}); err != nil {
		g.logger.Warn("failed to navigate for bid update", "url", productURL, "error", err)
		return model.BidUpdate{ProductURL: productURL, Error: err.Error()}
	}

	doc, err := pageDocument(page)
	if err != nil {
		return model.BidUpdate{ProductURL: productURL, Error: err.Error()}
	}

	return model.BidUpdate{
		ProductURL:    productURL,
		Price:         extractField(doc.Selection, detailPriceSpec),
		TimeRemaining: extractField(doc.Selection, detailTimeSpec),
	}
}

// Login は認証UIフローを実行し、セッション資格情報をスナップショットとして永続化します。
// 保存した資格情報は以降のPlaceBid/UpdateBidで再利用されます。
func (g *bidGateway) Login(ctx context.Context, username, password string) error {
	session, err := g.sessions.Acquire(browser.Options{})
	if err != nil {
		return err
	}
	defer session.Release()

	page, err := session.NewPage()
	if err != nil {
		return err
	}

	if _, err := page.Goto(g.baseURL+loginPath, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(bidGotoTimeoutMs),
	}); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	if err := page.Locator(loginMailSelector).Fill(username); err != nil {
		return fmt.Errorf("failed to fill mail address: %w", err)
	}
	if err := page.Locator(loginPasswdSelector).Fill(password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := page.GetByRole(*playwright.AriaRoleLink, playwright.PageGetByRoleOptions{Name: "Login"}).Click(); err != nil {
		return fmt.Errorf("failed to submit login: %w", err)
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("failed to wait for login navigation: %w", err)
	}

	if err := session.PersistCredential(g.credentialPath); err != nil {
		return err
	}
	g.logger.Info("login session persisted", "path", g.credentialPath)
	return nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
