package activity

import "time"

// Action はタスクに対して行われた操作を表します。
type Action string

const (
	ActionTaskCreated Action = "task.created"
	ActionTaskDeleted Action = "task.deleted"
)

// Event はユーザーのアクティビティ履歴の1件です。
type Event struct {
	ID     string    `json:"id"`
	Owner  string    `json:"-"`
	Action Action    `json:"action"`
	TaskID int64     `json:"taskId"`
	Title  string    `json:"title"`
	At     time.Time `json:"at"`
}

// taskPayload は Asynq に投入するペイロードです。Event.Owner は JSON に出さないため別に持ちます。
type taskPayload struct {
	Owner string `json:"owner"`
	Event Event  `json:"event"`
}
