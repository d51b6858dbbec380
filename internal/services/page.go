package services

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects one page of a list, 1-based.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	switch {
	case p.Size < 1:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

// List holds one page of results and the unpaginated count.
type List[T any] struct {
	Count int64
	Page  Page
	Items []T
}

// paginate counts q then loads the requested page into a List. q must carry
// Model and filters but no ordering-independent limits.
func paginate[T any](q *gorm.DB, page Page, order string) (List[T], error) {
	page = page.Normalize()
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return List[T]{}, err
	}
	items := make([]T, 0, page.Size)
	if err := q.Session(&gorm.Session{}).Order(order).Limit(page.Size).Offset(page.Offset()).Find(&items).Error; err != nil {
		return List[T]{}, err
	}
	return List[T]{Count: count, Page: page, Items: items}, nil
}
