package rest

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

const (
	MAX_WINDOW_DAYS = 366
	MAX_TOP_LIMIT   = 100
)

// WindowQueryParams holds the trailing-window parameters shared by the
// series endpoints
type WindowQueryParams struct {
	Days int    `form:"days,default=30"`
	Kind string `form:"kind,default=streams"`
}

// ParseWindowQuery parses and caps the trailing-window query parameters
func ParseWindowQuery(c *gin.Context) (*WindowQueryParams, error) {
	var params WindowQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	if params.Days < 1 {
		return nil, errors.New("days must be at least 1")
	}
	if params.Days > MAX_WINDOW_DAYS {
		params.Days = MAX_WINDOW_DAYS
	}

	if !domain.IsValidAggregateKind(domain.AggregateKind(params.Kind)) {
		return nil, fmt.Errorf("unknown kind: %s", params.Kind)
	}

	return &params, nil
}

// AggregateKind returns the validated reconciliation stream
func (p *WindowQueryParams) AggregateKind() domain.AggregateKind {
	return domain.AggregateKind(p.Kind)
}

// TopDeltasQueryParams holds query parameters for GET /streams/top-deltas
type TopDeltasQueryParams struct {
	Day   string `form:"day"`
	Limit int    `form:"limit,default=10"`
}

// ParseTopDeltasQuery parses query parameters for GET /streams/top-deltas
func ParseTopDeltasQuery(c *gin.Context) (*TopDeltasQueryParams, *domain.Day, error) {
	var params TopDeltasQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, nil, err
	}

	if params.Day == "" {
		return nil, nil, errors.New("day is required")
	}
	day, err := domain.ParseDay(params.Day)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid day: %w", err)
	}

	if params.Limit < 1 {
		return nil, nil, errors.New("limit must be at least 1")
	}
	if params.Limit > MAX_TOP_LIMIT {
		params.Limit = MAX_TOP_LIMIT
	}

	return &params, &day, nil
}

// TopShareQueryParams holds query parameters for GET /artists/top-share
type TopShareQueryParams struct {
	Days  int `form:"days,default=30"`
	Limit int `form:"limit,default=10"`
}

// ParseTopShareQuery parses query parameters for GET /artists/top-share
func ParseTopShareQuery(c *gin.Context) (*TopShareQueryParams, error) {
	var params TopShareQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	if params.Days < 1 {
		return nil, errors.New("days must be at least 1")
	}
	if params.Days > MAX_WINDOW_DAYS {
		params.Days = MAX_WINDOW_DAYS
	}

	if params.Limit < 1 {
		return nil, errors.New("limit must be at least 1")
	}
	if params.Limit > MAX_TOP_LIMIT {
		params.Limit = MAX_TOP_LIMIT
	}

	return &params, nil
}
