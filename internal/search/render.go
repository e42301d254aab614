package search

import "fmt"

type Status int

const (
	StatusNone Status = iota
	StatusSearching
	StatusNotFound
	StatusFound
)

type Item struct {
	Name string
	// Image is empty when the fallback picture should be shown.
	Image string
}

func (i Item) UsesFallback() bool { return i.Image == "" }

type Screen struct {
	Status  Status
	Message string
	// NotFoundImage asks the front-end to show the not-found illustration.
	NotFoundImage bool
	TotalCount    int
	Items         []Item
}

// Render applies the display rules to a state snapshot. The item grid always
// mirrors the current result set, whatever the status.
func Render(s State) Screen {
	screen := Screen{TotalCount: s.TotalCount}
	for _, p := range s.Results {
		screen.Items = append(screen.Items, Item{Name: p.Name, Image: p.Image})
	}

	switch {
	case s.Input == "":
	case s.Loading:
		screen.Status = StatusSearching
		screen.Message = SearchingMessage(s.Input)
	case s.TotalCount == 0:
		screen.Status = StatusNotFound
		screen.Message = NotFoundMessage(s.Input)
		screen.NotFoundImage = true
	default:
		screen.Status = StatusFound
		screen.Message = FoundMessage(s.Input, s.TotalCount)
	}
	return screen
}

func SearchingMessage(input string) string {
	return fmt.Sprintf("Looking for %q... one moment!", input)
}

func NotFoundMessage(input string) string {
	return fmt.Sprintf("Looks like there is nobody called %q", input)
}

func FoundMessage(input string, total int) string {
	return fmt.Sprintf("Found %d results for %q", total, input)
}
