package model

type SearchState struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
}
