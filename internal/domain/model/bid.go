package model

// BidRecord は追跡中の入札1件を表します
// ProductURL を一意キーとし、台帳内には同一URLのレコードは常に1件しか存在しません
type BidRecord struct {
	ProductURL   string  `json:"productUrl"`
	BidAmount    float64 `json:"bidAmount"`
	Timestamp    string  `json:"timestamp"` // 入札時点の残り時間テキスト
	Title        string  `json:"title"`
	ThumbnailURL string  `json:"thumbnailUrl"` // 取得できない場合は空文字列
}

// BidPlacement は入札操作の結果です
// 「入札ボタンが無い」などの業務的な失敗は Success=false で表現し、
// エラーとしては伝播させません
type BidPlacement struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Details *BidRecord `json:"details,omitempty"`
}

// BidUpdate は追跡中URLの価格・残り時間の再取得結果です
// 呼び出し側は多数のURLを順番に処理するため、失敗もデータとして返します
type BidUpdate struct {
	ProductURL    string `json:"productUrl"`
	Price         string `json:"price,omitempty"`
	TimeRemaining string `json:"timeRemaining,omitempty"`
	Error         string `json:"error,omitempty"`
}
