package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"buyee-scraper/internal/domain/model"
)

// document は台帳ファイルの永続形式です
type document struct {
	Bids []model.BidRecord `json:"bids"`
}

// FileLedger は {"bids": [...]} 形式のJSONドキュメントを丸ごと読み書きする台帳実装です。
// プロセス内の読み書きはミューテックスで直列化します。
// 同一ファイルを複数プロセスから更新した場合のload-modify-storeの競合は防げないため、
// 外部からの書き込みは想定しません（既知の制限）。
type FileLedger struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileLedger は指定されたパスを台帳ファイルとして使うFileLedgerを作成します。
// ファイルは初回のUpsertまで作成されません。
func NewFileLedger(path string, logger *slog.Logger) *FileLedger {
	return &FileLedger{path: path, logger: logger}
}

// Upsert は ProductURL をキーとした置換セマンティクスでレコードを保存します。
// 同一URLのレコードは重複せず、常に最新の1件だけが残ります。
func (l *FileLedger) Upsert(record model.BidRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, bid := range doc.Bids {
		if bid.ProductURL == record.ProductURL {
			doc.Bids[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Bids = append(doc.Bids, record)
	}

	if err := l.store(doc); err != nil {
		return err
	}
	l.logger.Info("bid recorded", "url", record.ProductURL, "amount", record.BidAmount, "replaced", replaced)
	return nil
}

// ReadAll は台帳の全レコードを返します。台帳ファイルが無い場合は空の台帳として扱います。
func (l *FileLedger) ReadAll() ([]model.BidRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load()
	if err != nil {
		return nil, err
	}
	return doc.Bids, nil
}

// Prune は指定されたURL集合に一致するレコードを削除します。
// 空集合・台帳ファイル無し・一致なしはいずれもログ付きのno-opです。
func (l *FileLedger) Prune(urls []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(urls) == 0 {
		l.logger.Info("ledger prune skipped: empty url set")
		return nil
	}
	if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("ledger prune skipped: no ledger file", "path", l.path)
		return nil
	}

	doc, err := l.load()
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(urls))
	for _, u := range urls {
		drop[u] = true
	}

	kept := make([]model.BidRecord, 0, len(doc.Bids))
	for _, bid := range doc.Bids {
		if !drop[bid.ProductURL] {
			kept = append(kept, bid)
		}
	}

	removed := len(doc.Bids) - len(kept)
	if removed == 0 {
		l.logger.Info("ledger prune: no records matched", "urls", len(urls))
		return nil
	}

	doc.Bids = kept
	if err := l.store(doc); err != nil {
		return err
	}
	l.logger.Info("pruned ended auctions from ledger", "removed", removed)
	return nil
}

func (l *FileLedger) load() (*document, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{Bids: []model.BidRecord{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	if doc.Bids == nil {
		doc.Bids = []model.BidRecord{}
	}
	return &doc, nil
}

func (l *FileLedger) store(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}
