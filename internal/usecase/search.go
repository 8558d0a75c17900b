package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"buyee-scraper/internal/domain/model"
	"buyee-scraper/internal/domain/repository"
)

// ErrEmptyTerm は検索ワード未指定のバリデーションエラーです
var ErrEmptyTerm = errors.New("search term is required")

// SearchUsecase は検索とバッチ実行のビジネスロジックを担当します
type SearchUsecase struct {
	repo   repository.ListingRepository
	pacing time.Duration
	sleep  func(time.Duration)
	logger *slog.Logger
}

// NewSearchUsecase は新しいSearchUsecaseインスタンスを作成します。
// pacing はバッチ実行時にグループ間へ挟むディレイです（対象サイトへのレート配慮）。
func NewSearchUsecase(repo repository.ListingRepository, pacing time.Duration, logger *slog.Logger) *SearchUsecase {
	return &SearchUsecase{
		repo:   repo,
		pacing: pacing,
		sleep:  time.Sleep,
		logger: logger,
	}
}

// Search は1件の検索クエリを実行します
func (u *SearchUsecase) Search(ctx context.Context, query model.SearchQuery) ([]model.Listing, error) {
	if strings.TrimSpace(query.Term) == "" {
		return nil, ErrEmptyTerm
	}
	return u.repo.Search(ctx, query)
}

// RunBatch は複数の検索クエリを同時実行数の上限付きで実行します。
// クエリは concurrency 件ずつのグループに分割され、グループ内は並行実行、
// グループ全員の完了を待ってから次のグループへ進みます。
// グループ間には固定のディレイを挟みます（最終グループの後には入れません）。
// クエリ単位の失敗は個別に捕捉してErrorsへ記録し、同一グループの他クエリには影響しません。
// 全クエリが失敗して結果が0件の場合のみ、バッチ全体の失敗としてエラーを返します。
func (u *SearchUsecase) RunBatch(ctx context.Context, queries []model.SearchQuery, concurrency int) (*model.BatchResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	runID := uuid.NewString()[:8]
	log := u.logger.With("batch", runID)
	log.Info("starting batch search", "queries", len(queries), "concurrency", concurrency)
	start := time.Now()

	result := &model.BatchResult{
		Results: []model.Listing{},
		Errors:  []model.BatchError{},
	}
	var mu sync.Mutex

	for groupStart := 0; groupStart < len(queries); groupStart += concurrency {
		groupEnd := min(groupStart+concurrency, len(queries))
		group := queries[groupStart:groupEnd]

		var wg sync.WaitGroup
		for _, query := range group {
			wg.Add(1)
			go func(q model.SearchQuery) {
				defer wg.Done()
				listings, err := u.Search(ctx, q)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					log.Warn("search term failed", "term", q.Term, "error", err)
					result.Errors = append(result.Errors, model.BatchError{Term: q.Term, Message: err.Error()})
					return
				}
				result.Results = append(result.Results, listings...)
			}(query)
		}
		wg.Wait()

		if groupEnd < len(queries) {
			u.sleep(u.pacing)
		}
	}

	result.Partial = len(result.Errors) > 0

	if len(queries) > 0 && len(result.Results) == 0 && len(result.Errors) == len(queries) {
		messages := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", e.Term, e.Message))
		}
		return result, fmt.Errorf("all search terms failed: %s", strings.Join(messages, "; "))
	}

	log.Info("batch search finished",
		"results", len(result.Results),
		"errors", len(result.Errors),
		"duration", time.Since(start).Round(time.Millisecond))
	return result, nil
}
