package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"buyee-scraper/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeListingRepo はテスト用のListingRepository実装です
type fakeListingRepo struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]model.Listing
	errs    map[string]error
}

func (f *fakeListingRepo) Search(_ context.Context, query model.SearchQuery) ([]model.Listing, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query.Term)
	f.mu.Unlock()

	if err, ok := f.errs[query.Term]; ok {
		return nil, err
	}
	return f.results[query.Term], nil
}

func (f *fakeListingRepo) FetchDetails(_ context.Context, urls []string) ([]model.Listing, []string, error) {
	return nil, nil, nil
}

func listings(urls ...string) []model.Listing {
	out := make([]model.Listing, 0, len(urls))
	for _, u := range urls {
		out = append(out, model.Listing{URL: u})
	}
	return out
}

func queries(terms ...string) []model.SearchQuery {
	out := make([]model.SearchQuery, 0, len(terms))
	for _, term := range terms {
		out = append(out, model.SearchQuery{Term: term})
	}
	return out
}

func TestSearch_rejectsBlankTerm(t *testing.T) {
	t.Parallel()

	repo := &fakeListingRepo{}
	u := NewSearchUsecase(repo, 0, discardLogger())

	if _, err := u.Search(context.Background(), model.SearchQuery{Term: "   "}); !errors.Is(err, ErrEmptyTerm) {
		t.Fatalf("got %v, want ErrEmptyTerm", err)
	}
	if len(repo.calls) != 0 {
		t.Fatalf("repo should not be called for blank term")
	}
}

func TestRunBatch_groupsAndPacing(t *testing.T) {
	t.Parallel()

	repo := &fakeListingRepo{
		results: map[string][]model.Listing{
			"a": listings("u1"), "b": listings("u2"), "c": listings("u3"),
			"d": listings("u4"), "e": listings("u5"),
		},
	}
	u := NewSearchUsecase(repo, 2*time.Second, discardLogger())

	var sleeps []time.Duration
	u.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	result, err := u.RunBatch(context.Background(), queries("a", "b", "c", "d", "e"), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Results) != 5 {
		t.Fatalf("got %d results, want 5", len(result.Results))
	}
	// 5クエリ・同時4なら2グループ。ディレイはグループの間の1回だけ
	if len(sleeps) != 1 || sleeps[0] != 2*time.Second {
		t.Fatalf("sleeps got %v, want one 2s pause", sleeps)
	}
	if result.Partial {
		t.Fatalf("Partial should be false with no errors")
	}
}

func TestRunBatch_noPacingForSingleGroup(t *testing.T) {
	t.Parallel()

	repo := &fakeListingRepo{results: map[string][]model.Listing{"a": listings("u1")}}
	u := NewSearchUsecase(repo, time.Second, discardLogger())

	sleepCount := 0
	u.sleep = func(time.Duration) { sleepCount++ }

	if _, err := u.RunBatch(context.Background(), queries("a"), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sleepCount != 0 {
		t.Fatalf("no pause expected after the final group, got %d", sleepCount)
	}
}

func TestRunBatch_perTermFailureIsIsolated(t *testing.T) {
	t.Parallel()

	repo := &fakeListingRepo{
		results: map[string][]model.Listing{"ok": listings("u1", "u2")},
		errs:    map[string]error{"bad": errors.New("timeout loading page")},
	}
	u := NewSearchUsecase(repo, 0, discardLogger())
	u.sleep = func(time.Duration) {}

	result, err := u.RunBatch(context.Background(), queries("ok", "bad"), 2)
	if err != nil {
		t.Fatalf("partial failure must not be a batch error: %v", err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(result.Results))
	}
	if len(result.Errors) != 1 || result.Errors[0].Term != "bad" {
		t.Fatalf("errors got %v", result.Errors)
	}
	if !result.Partial {
		t.Fatalf("Partial should be true when some terms failed")
	}
}

func TestRunBatch_allTermsFailed(t *testing.T) {
	t.Parallel()

	repo := &fakeListingRepo{
		errs: map[string]error{
			"x": errors.New("boom"),
			"y": errors.New("bust"),
		},
	}
	u := NewSearchUsecase(repo, 0, discardLogger())
	u.sleep = func(time.Duration) {}

	result, err := u.RunBatch(context.Background(), queries("x", "y"), 2)
	if err == nil {
		t.Fatalf("expected batch error when every term failed")
	}
	if !strings.Contains(err.Error(), "all search terms failed") {
		t.Fatalf("unexpected error message: %v", err)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors got %v", result.Errors)
	}
}

func TestRunBatch_blankTermRecordedAsError(t *testing.T) {
	t.Parallel()

	repo := &fakeListingRepo{results: map[string][]model.Listing{"ok": listings("u1")}}
	u := NewSearchUsecase(repo, 0, discardLogger())
	u.sleep = func(time.Duration) {}

	result, err := u.RunBatch(context.Background(), queries("ok", ""), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Message != ErrEmptyTerm.Error() {
		t.Fatalf("errors got %v", result.Errors)
	}
}

func TestRunBatch_concurrencyFloor(t *testing.T) {
	t.Parallel()

	repo := &fakeListingRepo{results: map[string][]model.Listing{"a": listings("u1"), "b": listings("u2")}}
	u := NewSearchUsecase(repo, 0, discardLogger())

	sleepCount := 0
	u.sleep = func(time.Duration) { sleepCount++ }

	result, err := u.RunBatch(context.Background(), queries("a", "b"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(result.Results))
	}
	// 同時実行数0は1に切り上げられ、2グループになる
	if sleepCount != 1 {
		t.Fatalf("sleep count got %d, want 1", sleepCount)
	}
}
