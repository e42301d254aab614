package bot

import (
	"fmt"

	"wikilist/internal/search"
)

// formatProfileCaption cuts long names by characters, which is how
// telegram counts the caption limit.
func formatProfileCaption(item search.Item) string {
	runes := []rune(item.Name)
	if len(runes) > telegramCaptionLimit {
		return string(runes[:telegramCaptionLimit-3]) + "..."
	}
	return item.Name
}

func formatProfileList(items []search.Item, page, pageSize int) string {
	var text string
	for i, item := range items {
		text += fmt.Sprintf("%d. %s\n", (page-1)*pageSize+i+1, item.Name)
	}
	return text
}

func hasNextPage(page, pageSize, total int) bool {
	return page*pageSize < total
}
