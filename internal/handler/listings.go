package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"nftmarket/internal/models"
	"nftmarket/internal/repository"
	"nftmarket/internal/service"
)

// ListingQueries is implemented by *service.ListingQueryService.
type ListingQueries interface {
	FindByMarket(ctx context.Context, q service.ListingQuery) (service.ListingPage, error)
	FindAll(ctx context.Context, q service.ListingQuery) (service.ListingPage, error)
	GetByID(ctx context.Context, collection string, id int64) (*models.Listing, error)
	SearchByIDPrefix(ctx context.Context, collection, prefix string) ([]models.Listing, error)
	ElementFloor(ctx context.Context, collection, element string) (service.FloorResult, error)
	GetByIDs(ctx context.Context, collection string, ids []int64) ([]models.Listing, error)
	GetByIdentifiers(ctx context.Context, collection string, identifiers []string) ([]models.Listing, error)
	FindByOwner(ctx context.Context, address string, q service.ListingQuery) (service.ListingPage, error)
}

type ListingsHandler struct {
	Service ListingQueries
}

func (h *ListingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/collections/:collection")
	g.GET("/market", h.market)
	g.GET("/all", h.all)
	g.GET("/id/:id", h.byID)
	g.GET("/search/:id", h.search)
	g.GET("/ids/:ids", h.byIDs)
	g.GET("/identifiers/:identifiers", h.byIdentifiers)
	g.GET("/floor/:element", h.floor)
	g.GET("/user/:address", h.byOwner)
}

// @Summary Listed records of a collection
// @Tags listings
// @Param collection path string true "collection ticker"
// @Param by query string false "id|rank|price|viewed|latest"
// @Param order query string false "asc|desc"
// @Param page query int false "page number, from 1"
// @Param count query int false "page size (max 100)"
// @Param type query string false "market type (buy|bid)"
// @Success 200 {object} apiResponse
// @Router /api/collections/{collection}/market [get]
func (h *ListingsHandler) market(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	q.MarketType = strings.TrimSpace(c.Query("type"))
	page, err := h.Service.FindByMarket(c.Request.Context(), q)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, page, nil)
}

// @Summary All records of a collection
// @Tags listings
// @Param collection path string true "collection ticker"
// @Param by query string false "id|rank|price|viewed|latest"
// @Param order query string false "asc|desc"
// @Param page query int false "page number, from 1"
// @Param count query int false "page size (max 100)"
// @Param isClaimed query bool false "claim state"
// @Param stone query string false "element"
// @Success 200 {object} apiResponse
// @Router /api/collections/{collection}/all [get]
func (h *ListingsHandler) all(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	page, err := h.Service.FindAll(c.Request.Context(), q)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, page, nil)
}

// @Summary One record; counts a view
// @Tags listings
// @Param collection path string true "collection ticker"
// @Param id path int true "record id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/collections/{collection}/id/{id} [get]
func (h *ListingsHandler) byID(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Service.GetByID(c.Request.Context(), c.Param("collection"), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Records whose id name starts with a prefix
// @Tags listings
// @Param collection path string true "collection ticker"
// @Param id path string true "id prefix"
// @Success 200 {object} apiResponse
// @Router /api/collections/{collection}/search/{id} [get]
func (h *ListingsHandler) search(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items, err := h.Service.SearchByIDPrefix(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Records by comma separated ids
// @Tags listings
// @Param collection path string true "collection ticker"
// @Param ids path string true "ids, comma separated"
// @Success 200 {object} apiResponse
// @Router /api/collections/{collection}/ids/{ids} [get]
func (h *ListingsHandler) byIDs(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	raw := splitList(c.Param("ids"))
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid id "+strconv.Quote(v), nil)
			return
		}
		ids = append(ids, id)
	}
	items, err := h.Service.GetByIDs(c.Request.Context(), c.Param("collection"), ids)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Records by comma separated token identifiers
// @Tags listings
// @Param collection path string true "collection ticker"
// @Param identifiers path string true "identifiers, comma separated"
// @Success 200 {object} apiResponse
// @Router /api/collections/{collection}/identifiers/{identifiers} [get]
func (h *ListingsHandler) byIdentifiers(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items, err := h.Service.GetByIdentifiers(c.Request.Context(), c.Param("collection"), splitList(c.Param("identifiers")))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Cheapest listed record of an element
// @Tags listings
// @Param collection path string true "collection ticker"
// @Param element path string true "element (stone)"
// @Success 200 {object} apiResponse
// @Router /api/collections/{collection}/floor/{element} [get]
func (h *ListingsHandler) floor(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	res, err := h.Service.ElementFloor(c.Request.Context(), c.Param("collection"), c.Param("element"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Records held by an account
// @Tags listings
// @Param collection path string true "collection ticker"
// @Param address path string true "account address"
// @Param page query int false "page number, from 1"
// @Param count query int false "page size (max 100)"
// @Success 200 {object} apiResponse
// @Router /api/collections/{collection}/user/{address} [get]
func (h *ListingsHandler) byOwner(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "invalid address", nil)
		return
	}
	page, err := h.Service.FindByOwner(c.Request.Context(), address, q)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, page, nil)
}

func (h *ListingsHandler) ready(c *gin.Context) bool {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return false
	}
	return true
}

// query reads paging, sorting and filter parameters. Trait filters use the
// trait path as the query key, e.g. ?crown.name=Gold.
func (h *ListingsHandler) query(c *gin.Context) (service.ListingQuery, bool) {
	if !h.ready(c) {
		return service.ListingQuery{}, false
	}
	filter := repository.ListingFilter{
		IDPrefix:  strings.TrimSpace(c.Query("id")),
		IDFrom:    int64QueryPtr(c, "idFrom"),
		IDTo:      int64QueryPtr(c, "idTo"),
		Stone:     strings.ToLower(strings.TrimSpace(c.Query("stone"))),
		IsClaimed: boolQueryPtr(c, "isClaimed"),
	}
	for key, values := range c.Request.URL.Query() {
		if !repository.IsTraitPath(key) || len(values) == 0 || strings.TrimSpace(values[0]) == "" {
			continue
		}
		if filter.Traits == nil {
			filter.Traits = map[string]string{}
		}
		filter.Traits[key] = strings.TrimSpace(values[0])
	}
	return service.ListingQuery{
		Collection: c.Param("collection"),
		Filter:     filter,
		By:         c.Query("by"),
		Order:      c.Query("order"),
		Page:       intQuery(c, "page", 1),
		Count:      intQuery(c, "count", 0),
	}, true
}
