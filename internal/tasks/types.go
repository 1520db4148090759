package tasks

import "github.com/yourusername/taskmaster/internal/storage"

// ListQuery は一覧取得の条件です。
type ListQuery struct {
	Query string // タイトル検索（大文字小文字を区別しない部分一致）
	Page  *int
	Limit *int
}

// Page はページング指定時のレスポンスです。
type Page struct {
	Items []storage.Task `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
	Pages int            `json:"pages"`
}

// ListResult は一覧取得の結果です。
// Paged が nil の場合は Items をそのまま配列で返します（後方互換のため2形式を維持）。
type ListResult struct {
	Items []storage.Task
	Paged *Page
}
