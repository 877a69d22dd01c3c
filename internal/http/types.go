package http

import "sniper/internal/model"

// AnalyzeRequest is the inbound body from the UI.
type AnalyzeRequest struct {
	Link   string `json:"link"`
	UserID string `json:"user_id,omitempty"`
}

// AnalyzeResponse is the outward-facing result record.
type AnalyzeResponse struct {
	Score    int    `json:"score"`
	Verdict  string `json:"verdict"`
	Reason   string `json:"reason"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	Price    string `json:"price"`
	Domain   string `json:"domain"`
}

// ErrorResponse is the stable error envelope. The UI keys off the HTTP
// status, not the message, so the message stays short and fixed.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HistoryResponse lists a user's recent analyses, newest first.
type HistoryResponse struct {
	Analyses []model.Analysis `json:"analyses"`
}
