package domain

// DefaultPageSize is the number of posts per feed page unless configured otherwise.
const DefaultPageSize = 10

// Page is one page of a post feed. A page past the last one is valid and has no posts.
type Page struct {
	Number      int    `json:"number"`
	Size        int    `json:"size"`
	Count       int    `json:"count"`
	NumPages    int    `json:"num_pages"`
	HasNext     bool   `json:"has_next"`
	HasPrevious bool   `json:"has_previous"`
	Posts       []Post `json:"posts"`
}

// NewPage computes the page metadata for the given page number, page size and total
// number of posts. There is always at least one page, even for an empty feed.
func NewPage(number, size, count int) *Page {
	if number < 1 {
		number = 1
	}
	numPages := 1
	if count > 0 {
		numPages = (count + size - 1) / size
	}
	return &Page{
		Number:      number,
		Size:        size,
		Count:       count,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
		Posts:       []Post{},
	}
}

// Offset is the number of posts that come before this page.
func (p *Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// OutOfRange reports whether the page lies behind the last page.
func (p *Page) OutOfRange() bool {
	return p.Number > p.NumPages
}
