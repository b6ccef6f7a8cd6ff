package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/sifter"
	"github.com/soundprediction/sifter/pkg/search"
	"github.com/soundprediction/sifter/pkg/server/dto"
	"github.com/soundprediction/sifter/pkg/types"
)

// LoggerKey is the gin context key holding the request logger.
const LoggerKey = "logger"

func logger(c *gin.Context) *slog.Logger {
	if l, ok := c.Get(LoggerKey); ok {
		if lg, ok := l.(*slog.Logger); ok {
			return lg
		}
	}
	return slog.Default()
}

// Paging parameters. They are read from the query string and never reach
// the search session.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
)

// SearchHandler serves the entity catalog and search requests.
type SearchHandler struct {
	client sifter.Sifter
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(client sifter.Sifter) *SearchHandler {
	return &SearchHandler{client: client}
}

// ListEntities handles GET /api/v1/entities
func (h *SearchHandler) ListEntities(c *gin.Context) {
	c.JSON(http.StatusOK, dto.EntitiesResponse{Entities: h.client.Entities()})
}

// Fields handles GET /api/v1/entities/:entity/fields
func (h *SearchHandler) Fields(c *gin.Context) {
	view, err := h.client.Fields(c.Request.Context(), c.Param("entity"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FieldsResponse{SelectorView: view, FieldTable: view.FieldTable()})
}

// Search handles GET and POST /api/v1/entities/:entity/search. Query and
// form parameters form the session context: CRITERIA carries the current
// list, ACT an optional mutation ("ADD" or an index to remove) and the
// search* parameters the selection to add.
func (h *SearchHandler) Search(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	params, err := requestParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	page = h.client.ClampPage(page)
	result, err := h.client.Search(c.Request.Context(), c.Param("entity"), params, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSearchResponse(result, page))
}

// GetRecord handles GET /api/v1/entities/:entity/records/:id
func (h *SearchHandler) GetRecord(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return
	}
	rec, err := h.client.GetRecord(c.Request.Context(), c.Param("entity"), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Stats handles GET /api/v1/stats
func (h *SearchHandler) Stats(c *gin.Context) {
	stats, err := h.client.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Import handles POST /api/v1/import with an import document as body.
func (h *SearchHandler) Import(c *gin.Context) {
	report, err := h.client.Import(c.Request.Context(), c.Request.Body)
	if err != nil {
		if report == nil {
			// Nothing was written: the document itself is at fault.
			badRequest(c, err.Error())
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func pageFromQuery(c *gin.Context) (types.Page, error) {
	var page types.Page
	if raw := c.Query(ParamLimit); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, errInvalidParam(ParamLimit)
		}
		page.Limit = n
	}
	if raw := c.Query(ParamOffset); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, errInvalidParam(ParamOffset)
		}
		page.Offset = n
	}
	return page, nil
}

type errInvalidParam string

func (e errInvalidParam) Error() string {
	return string(e) + " must be a non-negative integer"
}

// requestParams flattens query and form parameters. Repeated values of the
// choice slot, as sent by a multi-select, are joined into one id list.
func requestParams(c *gin.Context) (map[string]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	params := make(map[string]string, len(c.Request.Form))
	for k, values := range c.Request.Form {
		if k == ParamLimit || k == ParamOffset || len(values) == 0 {
			continue
		}
		if k == search.ParamValueList {
			params[k] = strings.Join(values, types.ChoiceSeparator)
			continue
		}
		params[k] = values[0]
	}
	return params, nil
}
