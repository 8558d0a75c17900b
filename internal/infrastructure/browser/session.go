package browser

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/playwright-community/playwright-go"
)

// Buyeeに通常のブラウザとして見せるためのヘッダ類です
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var defaultHeaders = map[string]string{
	"Accept-Language": "en-US,en;q=0.9",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Encoding": "gzip, deflate, br",
	"Connection":      "keep-alive",
}

// Manager はPlaywrightドライバを1プロセスにつき1つ所有し、
// 論理操作ごとに独立したブラウザセッションを払い出します。
type Manager struct {
	pw       *playwright.Playwright
	headless bool
	logger   *slog.Logger
}

// Options はセッション取得時のオプションです
type Options struct {
	// StorageStatePath が指定され、かつファイルが存在する場合、
	// 永続化済みの資格情報スナップショットからコンテキストを復元します。
	StorageStatePath string
}

// Session は1つの論理操作が占有するブラウザとコンテキストの組です。
// 並行するスクレイプ同士でCookieやナビゲーション状態が漏れないよう、
// セッションは操作間で共有しません。
type Session struct {
	browser playwright.Browser
	Context playwright.BrowserContext
	logger  *slog.Logger
}

// Install はChromiumを含むPlaywrightランタイムをインストールします。
// 初回セットアップ用で、デプロイ先でのみ呼び出します。
func Install() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

// NewManager はPlaywrightドライバを起動してManagerを作成します。
// ドライバ起動の失敗は呼び出し側にとって致命的です（内部でリトライしません）。
func NewManager(headless bool, logger *slog.Logger) (*Manager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}
	return &Manager{
		pw:       pw,
		headless: headless,
		logger:   logger,
	}, nil
}

// Close はPlaywrightドライバを停止します
func (m *Manager) Close() error {
	return m.pw.Stop()
}

// Acquire は新しいブラウザプロセスと分離済みコンテキストを起動します。
// 取得したSessionは、所有する操作のすべての終了経路で必ずReleaseしてください。
func (m *Manager) Acquire(opts Options) (*Session, error) {
	browser, err := m.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{
		Viewport:         &playwright.Size{Width: 1920, Height: 1080},
		UserAgent:        playwright.String(defaultUserAgent),
		ExtraHttpHeaders: defaultHeaders,
	}
	if opts.StorageStatePath != "" {
		if _, statErr := os.Stat(opts.StorageStatePath); statErr == nil {
			ctxOpts.StorageStatePath = playwright.String(opts.StorageStatePath)
		} else {
			m.logger.Warn("credential snapshot not found, starting unauthenticated",
				"path", opts.StorageStatePath)
		}
	}

	context, err := browser.NewContext(ctxOpts)
	if err != nil {
		if closeErr := browser.Close(); closeErr != nil {
			m.logger.Warn("failed to close browser after context error", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Session{browser: browser, Context: context, logger: m.logger}, nil
}

// NewPage はこのセッションのコンテキスト内に新しいページを開きます
func (s *Session) NewPage() (playwright.Page, error) {
	page, err := s.Context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return page, nil
}

// Release はコンテキストとブラウザプロセスを無条件に破棄します。
// エラー経路でも呼ばれる前提のため、失敗はログするだけで返しません。
func (s *Session) Release() {
	if err := s.Context.Close(); err != nil {
		s.logger.Warn("failed to close browser context", "error", err)
	}
	if err := s.browser.Close(); err != nil {
		s.logger.Warn("failed to close browser", "error", err)
	}
}

// PersistCredential は認証済みコンテキストのストレージ状態をスナップショットとして保存します。
// 保存したファイルは以降の Acquire で StorageStatePath として再利用できます。
func (s *Session) PersistCredential(path string) error {
	if _, err := s.Context.StorageState(path); err != nil {
		return fmt.Errorf("failed to persist storage state: %w", err)
	}
	return nil
}
