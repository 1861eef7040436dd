package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/numbering"
)

type dateRequest struct {
	Date string `json:"date"`
}

type scopedRequest struct {
	Prefix string `json:"prefix"`
	Date   string `json:"date"`
}

type lrRequest struct {
	Seed *int64 `json:"seed"`
}

type expiryRequest struct {
	CreatedAt string `json:"created_at"`
}

type idResponse struct {
	ID string `json:"id"`
}

type lrResponse struct {
	LRNumber string `json:"lr_number"`
}

type expiryResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
	Countdown string    `json:"countdown"`
}

// bindOptionalJSON decodes the body into dst; an empty body leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return common.InvalidInputf("malformed JSON body: %v", err)
	}
	return nil
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates, the
// latter taken as midnight in loc. An empty string yields the zero time.
func parseDate(field, s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, common.InvalidInputf("%s must be YYYY-MM-DD or RFC 3339", field)
	}
	return t, nil
}

func (a *API) NextEnquiry(c *gin.Context) {
	var req dateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	date, err := parseDate("date", req.Date, a.loc)
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := a.gen.NextEnquiryID(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: id})
}

func (a *API) NextOrder(c *gin.Context) {
	var req dateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	date, err := parseDate("date", req.Date, a.loc)
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := a.gen.NextOrderID(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: id})
}

func (a *API) NextDaily(c *gin.Context) {
	a.scopedID(c, a.gen.DailyID)
}

func (a *API) NextMonthly(c *gin.Context) {
	a.scopedID(c, a.gen.MonthlyID)
}

func (a *API) scopedID(c *gin.Context, next func(ctx context.Context, prefix string, date time.Time) (string, error)) {
	var req scopedRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	prefix := strings.TrimSpace(req.Prefix)
	if err := common.NewValidator().
		Field("prefix", prefix, common.Required, common.Prefix).
		Err(); err != nil {
		respondError(c, err)
		return
	}
	date, err := parseDate("date", req.Date, a.loc)
	if err != nil {
		respondError(c, err)
		return
	}
	id, err := next(c.Request.Context(), prefix, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, idResponse{ID: id})
}

func (a *API) NextLR(c *gin.Context) {
	var req lrRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	seed := a.gen.LRSeed()
	if req.Seed != nil {
		if err := common.NewValidator().Field("seed", *req.Seed, common.NonNegative).Err(); err != nil {
			respondError(c, err)
			return
		}
		seed = *req.Seed
	}
	n, err := a.gen.NextSequentialNumber(c.Request.Context(), seed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lrResponse{LRNumber: n})
}

// PeekLR previews the next LR number without issuing it.
func (a *API) PeekLR(c *gin.Context) {
	seed := a.gen.LRSeed()
	if raw := c.Query("seed"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			respondError(c, common.InvalidInput("seed must be a non-negative integer"))
			return
		}
		seed = v
	}
	n, err := a.gen.PeekNextLRNumber(c.Request.Context(), seed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lrResponse{LRNumber: n})
}

func (a *API) EnquiryExpiry(c *gin.Context) {
	var req expiryRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := common.NewValidator().Field("created_at", req.CreatedAt, common.Required).Err(); err != nil {
		respondError(c, err)
		return
	}
	createdAt, err := parseDate("created_at", req.CreatedAt, a.loc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expiryResponse{
		ExpiresAt: numbering.ComputeExpiry(createdAt),
		Expired:   a.gen.IsExpired(createdAt),
		Countdown: a.gen.ExpiryCountdown(createdAt),
	})
}
