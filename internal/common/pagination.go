package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// GetPaginationParams extracts pagination parameters from Gin context.
func GetPaginationParams(c *gin.Context) (page, pageSize int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	if err != nil || page <= 0 {
		page = DefaultPage
	}

	pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(DefaultPageSize)))
	if err != nil || pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Paginate counts the rows matched by query and loads one page of them into dest.
// query must already carry its Model and filters. scopes (preloads, usually)
// are applied to the page query only, never to the count.
func Paginate(query *gorm.DB, page, pageSize int, order string, dest interface{}, scopes ...func(*gorm.DB) *gorm.DB) (*Pagination, error) {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := query.Session(&gorm.Session{}).
		Scopes(scopes...).
		Order(order).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(dest).Error; err != nil {
		return nil, err
	}
	return NewPagination(total, page, pageSize), nil
}
