package store

import "time"

// Role はメッセージの発言者を表す。
type Role string

const (
	// RoleUser はユーザーの発言を表す。
	RoleUser Role = "user"
	// RoleAssistant はアシスタントの応答を表す。
	RoleAssistant Role = "assistant"
)

// User は登録済みユーザー。
type User struct {
	// ID はユーザーの一意識別子。
	ID string
	// Email はユーザーのメールアドレス。
	Email string
	// Name は表示名。
	Name string
	// CreatedAt は登録日時。
	CreatedAt time.Time
}

// Message は会話履歴の1件。
type Message struct {
	// ID はメッセージの一意識別子（UUID）。
	ID string
	// UserID は会話の持ち主のユーザーID。
	UserID string
	// Content は本文。
	Content string
	// Image は添付画像の相対パス。添付が無い場合は空文字列。
	Image string
	// Role は発言者。
	Role Role
	// CreatedAt は作成日時。
	CreatedAt time.Time
}
