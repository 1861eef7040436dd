package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/repository"
)

// ImportCounters seeds counters from a browser localStorage dump. Values may
// arrive as strings or bare numbers; anything else is reported as skipped.
func (a *API) ImportCounters(c *gin.Context) {
	var dump map[string]json.RawMessage
	if err := c.ShouldBindJSON(&dump); err != nil {
		respondError(c, common.InvalidInputf("body must be a JSON object: %v", err))
		return
	}
	if len(dump) == 0 {
		respondError(c, common.InvalidInput("snapshot is empty"))
		return
	}

	snapshot := make(map[string]string, len(dump))
	for k, raw := range dump {
		snapshot[k] = legacyValue(raw)
	}

	report, err := repository.ImportLegacySnapshot(c.Request.Context(), a.store, snapshot, a.logger)
	if err != nil {
		respondError(c, common.NewAppError(common.CodeStore, "counter import failed", err))
		return
	}
	c.JSON(http.StatusOK, report)
}

func legacyValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
	}
	return string(raw)
}
