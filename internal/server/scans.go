package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/ashwini-cargo/internal/async"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/entity"
	"github.com/joseph-ayodele/ashwini-cargo/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type scanAccepted struct {
	ScanID string `json:"scan_id"`
	Status string `json:"status"`
}

type scanList struct {
	Scans []entity.Scan `json:"scans"`
}

// CreateScan accepts a multipart "file" upload. With ?async=true the scan is
// queued and 202 returned; otherwise the extracted record is returned inline.
func (a *API) CreateScan(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, common.InvalidInputf("file exceeds %d bytes", a.maxUpload))
			return
		}
		respondError(c, common.InvalidInput("no file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, common.InvalidInput("failed to read file"))
		return
	}
	in := pipeline.ScanInput{Filename: header.Filename, Data: data}

	if c.Query("async") == "true" {
		a.enqueueScan(c, in)
		return
	}

	scan, err := a.pipeline.Run(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (a *API) enqueueScan(c *gin.Context, in pipeline.ScanInput) {
	if a.queue == nil {
		respondError(c, common.NewAppError(common.CodeUnavailable, "background scanning is disabled", common.ErrQueueClosed))
		return
	}
	ctx := c.Request.Context()

	scan, err := a.pipeline.Submit(ctx, in)
	if err != nil {
		respondError(c, err)
		return
	}
	err = a.queue.Enqueue(ctx, async.Job{
		ScanID:    scan.ID,
		Input:     in,
		RequestID: GetRequestID(c),
	})
	if err != nil {
		// the row would otherwise sit QUEUED forever
		if ferr := a.scans.FinishFailed(context.WithoutCancel(ctx), scan.ID, "not queued: "+err.Error()); ferr != nil {
			a.logger.Error("could not fail unqueued scan", "scan_id", scan.ID, "error", ferr)
		}
		respondError(c, err)
		return
	}
	c.Header("Location", "/api/v1/scans/"+scan.ID.String())
	c.JSON(http.StatusAccepted, scanAccepted{ScanID: scan.ID.String(), Status: string(scan.Status)})
}

func (a *API) GetScan(c *gin.Context) {
	id, err := scanID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	scan, err := a.scans.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (a *API) ListScans(c *gin.Context) {
	from, to, err := a.window(c)
	if err != nil {
		respondError(c, err)
		return
	}
	scans, err := a.scans.List(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if scans == nil {
		scans = []entity.Scan{}
	}
	c.JSON(http.StatusOK, scanList{Scans: scans})
}

func (a *API) ExportScans(c *gin.Context) {
	from, to, err := a.window(c)
	if err != nil {
		respondError(c, err)
		return
	}
	xlsx, err := a.export.ExportScansXLSX(c.Request.Context(), from, to)
	if err != nil {
		a.logger.Error("export.xlsx.failed", "error", err)
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("lr-scans-%s.xlsx", a.gen.Now().In(a.loc).Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, xlsx)
}

// CorrectScan stores a manually reviewed record for a scan.
func (a *API) CorrectScan(c *gin.Context) {
	id, err := scanID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, common.InvalidInput("failed to read body"))
		return
	}
	rec, err := parseCorrection(body)
	if err != nil {
		respondError(c, err)
		return
	}
	scan, err := a.scans.ApplyCorrection(c.Request.Context(), id, rec)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scan)
}

func scanID(c *gin.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	if err := common.NewValidator().Field("id", raw, common.UUID).Err(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

// window reads ?from=&to= as inclusive calendar dates and returns the
// half-open [from, to+1d) range the repository expects.
func (a *API) window(c *gin.Context) (time.Time, time.Time, error) {
	from, err := parseDate("from", c.Query("from"), a.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate("to", c.Query("to"), a.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if verr := common.DateRange(from, to); verr != nil {
		return time.Time{}, time.Time{}, common.InvalidInput(verr.Error())
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}
