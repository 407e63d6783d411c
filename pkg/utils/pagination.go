package utils

import (
	"fmt"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Pagination struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

const (
	defaultSize = 10
	maxSize     = 100
	maxPage     = 1 << 20
)

func (p *Pagination) SetSize(querySize string) error {
	if querySize == "" {
		p.Size = defaultSize
		return nil
	}
	size, err := strconv.Atoi(querySize)
	if err != nil {
		return fmt.Errorf("invalid size: %w", err)
	}
	p.Size = size
	return nil
}

func (p *Pagination) SetPage(queryPage string) error {
	if queryPage == "" {
		p.Page = 1
		return nil
	}
	page, err := strconv.Atoi(queryPage)
	if err != nil {
		return fmt.Errorf("invalid page: %w", err)
	}
	if page > maxPage {
		return fmt.Errorf("invalid page: %d exceeds %d", page, maxPage)
	}
	p.Page = page
	return nil
}

// Normalize clamps page to [1, maxPage] and size to [1, 100].
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Size < 1 || p.Size > maxSize {
		p.Size = defaultSize
	}
}

func (p *Pagination) GetSize() int {
	return p.Size
}

func (p *Pagination) GetPage() int {
	return p.Page
}

func (p *Pagination) GetOffset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

func (p *Pagination) GetLimit() int {
	return p.Size
}

// Bounds returns the [start, end) window of a collection of total items.
// Pages past the end yield an empty window without computing the offset.
func (p *Pagination) Bounds(total int) (int, int) {
	size := p.GetLimit()
	if total <= 0 || size <= 0 || p.Page > 1 && p.Page-1 > (total-1)/size {
		return total, total
	}
	start := p.GetOffset()
	end := start + size
	if end > total {
		end = total
	}
	return start, end
}

func GetPaginationFromCtx(ctx echo.Context) (*Pagination, error) {
	p := &Pagination{}

	if err := p.SetSize(ctx.QueryParam("size")); err != nil {
		return nil, err
	}
	if err := p.SetPage(ctx.QueryParam("page")); err != nil {
		return nil, err
	}
	return p, nil
}

func GetTotalPages(totalCount int, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	d := float64(totalCount) / float64(pageSize)
	return int(math.Ceil(d))
}

func GetHasMore(currPage, totalCount, pageSize int) bool {
	if currPage < 1 || pageSize <= 0 {
		return false
	}
	return currPage <= (totalCount-1)/pageSize
}
