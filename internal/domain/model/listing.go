package model

// 抽出に失敗したフィールドへ格納するセンチネル値です
// Buyee側のマークアップが変わっても、Listingは常に構造的に完全な状態を保ちます
const (
	NoTitle = "No Title"
	NoPrice = "Price Not Available"
	NoTime  = "Time Not Available"
)

// Listing はBuyeeの商品情報のドメインモデルです
// 外部サイトのHTML構造を知らない、純粋なデータ構造を定義します
// Extractorが返した時点で不変として扱います
type Listing struct {
	Title         string   `json:"title"`
	Price         string   `json:"price"`         // 通貨記号付きの生テキスト
	TimeRemaining string   `json:"timeRemaining"` // ロケール依存の生テキスト
	URL           string   `json:"url"`           // 絶対URL
	Images        []string `json:"images"`        // クエリ除去・重複排除済み
}

// SearchQuery は1件の検索リクエストを表す値オブジェクトです
// 永続化されません
type SearchQuery struct {
	Term     string `json:"term"`
	MinPrice string `json:"minPrice,omitempty"`
	MaxPrice string `json:"maxPrice,omitempty"`
	Category string `json:"category,omitempty"`
	// PageCap が正の場合、計算されたページ数よりも優先されます
	PageCap int `json:"pageCap,omitempty"`
}

// BatchError はバッチ内の1クエリの失敗を表します
type BatchError struct {
	Term    string `json:"term"`
	Message string `json:"message"`
}

// BatchResult はバッチ実行1回分の集約結果です
// Partial はエラーを含みつつも部分的に成功したことを示します
type BatchResult struct {
	Results []Listing    `json:"results"`
	Errors  []BatchError `json:"errors"`
	Partial bool         `json:"partial"`
}
