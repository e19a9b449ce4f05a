package types

import "time"

// Conversation is a stored AI chat conversation.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Current   bool      `json:"current"`
}

// ConversationRequest is the request body for creating or renaming a conversation.
type ConversationRequest struct {
	Title string `json:"title"`
}

// Script is a toolshell script found in the scripts directory.
type Script struct {
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Enabled  bool   `json:"enabled"`
}

// ScriptRequest is the request body for creating a toolshell script.
type ScriptRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
