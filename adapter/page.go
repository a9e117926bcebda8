package adapter

// Page is the uniform shape of a search result page.
type Page struct {
	Items     []Item `json:"items"`
	Total     int    `json:"total" jsonschema:"description=Number of matches across all pages. Zero when the source does not report it."`
	PageCount int    `json:"page_count" jsonschema:"description=Number of pages. Zero when the source does not report it."`
	PageSize  int    `json:"page_size"`
	Page      int    `json:"page" jsonschema:"description=1-based page number."`
}

// EmptyPage returns a normalized page with no items.
func EmptyPage(page, pageSize int) *Page {
	return (&Page{}).Normalize(page, pageSize)
}

// Normalize fills in the fields an adapter left out so every page has the same shape.
// The requested page and pageSize are used when the adapter reported none.
func (p *Page) Normalize(page, pageSize int) *Page {
	if p.Items == nil {
		p.Items = []Item{}
	}

	if p.Page <= 0 {
		p.Page = max(page, 1)
	}

	if p.PageSize <= 0 {
		p.PageSize = pageSize
	}

	if p.PageSize <= 0 {
		p.PageSize = len(p.Items)
	}

	if p.Total < len(p.Items) {
		p.Total = len(p.Items)
	}

	if p.PageCount <= 0 {
		switch {
		case p.Total == 0:
			p.PageCount = 0
		case p.PageSize > 0:
			p.PageCount = (p.Total + p.PageSize - 1) / p.PageSize
		default:
			p.PageCount = 1
		}
	}

	return p
}
