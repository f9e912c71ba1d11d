package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
)

type listingService interface {
	ListListings(ctx context.Context, kind application.ListingKind) ([]application.Listing, error)
	ListListingsForAdmin(ctx context.Context, principal application.Principal, kind application.ListingKind) ([]application.Listing, error)
	GetListing(ctx context.Context, kind application.ListingKind, id string) (application.Listing, error)
	EditListingForm(ctx context.Context, principal application.Principal, kind application.ListingKind, id string) (application.ListingForm, error)
	SaveListing(ctx context.Context, principal application.Principal, form application.ListingForm) (application.Listing, error)
	PatchListing(ctx context.Context, principal application.Principal, kind application.ListingKind, id string, patch application.ListingPatch) (application.Listing, error)
	DeleteListing(ctx context.Context, principal application.Principal, kind application.ListingKind, id string, confirmed bool) error
}

type catalogService interface {
	Load(ctx context.Context, token string, kind application.ListingKind) ([]application.Listing, error)
	Filter(ctx context.Context, token string, kind application.ListingKind, filter application.ListingFilter) ([]application.Listing, error)
}

type ListingHandler struct {
	listings  listingService
	catalog   catalogService
	responder responder
	logger    *logrus.Logger
}

func NewListingHandler(listings listingService, catalog catalogService, logger *logrus.Logger) *ListingHandler {
	base := defaultLogger(logger)
	return &ListingHandler{listings: listings, catalog: catalog, responder: newResponder(base), logger: base}
}

func (h *ListingHandler) log(c *gin.Context, operation string, fields logrus.Fields) *logrus.Entry {
	return handlerLogger(c.Request.Context(), h.logger, "ListingHandler", operation, fields)
}

// List serves the catalog and refreshes the caller's snapshot.
func (h *ListingHandler) List(c *gin.Context) {
	kind, ok := h.kindQuery(c)
	if !ok {
		return
	}

	listings, err := h.catalog.Load(c.Request.Context(), sessionTokenFrom(c), kind)
	if err != nil {
		h.log(c, "List", logrus.Fields{"kind": kind}).WithError(err).Error("failed to load listings")
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, newListingCollection(kind, listings))
}

// Filter narrows the caller's last loaded collection.
func (h *ListingHandler) Filter(c *gin.Context) {
	kind, ok := h.kindQuery(c)
	if !ok {
		return
	}

	var query filterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.log(c, "Filter", logrus.Fields{"error_kind": "bad_request"}).WithError(err).Warn("invalid filter query")
		h.responder.writeError(c, http.StatusBadRequest, errInvalidFilterValue)
		return
	}
	filter, err := query.toFilter()
	if err != nil {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidFilterValue)
		return
	}

	listings, err := h.catalog.Filter(c.Request.Context(), sessionTokenFrom(c), kind, filter)
	if err != nil {
		h.log(c, "Filter", logrus.Fields{"kind": kind}).WithError(err).Error("failed to filter listings")
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, newListingCollection(kind, listings))
}

// GeoJSON exports located listings. Without a kind both collections are exported.
func (h *ListingHandler) GeoJSON(c *gin.Context) {
	kinds := []application.ListingKind{application.ListingKindHouse, application.ListingKindMuseum}
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		kind, ok := application.ParseListingKind(raw)
		if !ok {
			h.responder.writeError(c, http.StatusBadRequest, errInvalidListingKind)
			return
		}
		kinds = []application.ListingKind{kind}
	}

	var all []application.Listing
	for _, kind := range kinds {
		listings, err := h.listings.ListListings(c.Request.Context(), kind)
		if err != nil {
			h.log(c, "GeoJSON", logrus.Fields{"kind": kind}).WithError(err).Error("failed to load listings")
			h.responder.handleServiceError(c, err)
			return
		}
		all = append(all, listings...)
	}

	payload, err := application.ListingsFeatureCollection(all).MarshalJSON()
	if err != nil {
		h.log(c, "GeoJSON", nil).WithError(err).Error("failed to encode feature collection")
		h.responder.writeError(c, http.StatusInternalServerError, nil)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", payload)
}

func (h *ListingHandler) Get(c *gin.Context) {
	kind, ok := h.kindQuery(c)
	if !ok {
		return
	}

	listing, err := h.listings.GetListing(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toListingDTO(listing))
}

func (h *ListingHandler) AdminList(c *gin.Context) {
	kind, ok := h.kindQuery(c)
	if !ok {
		return
	}
	principal, _ := principalFrom(c)

	listings, err := h.listings.ListListingsForAdmin(c.Request.Context(), principal, kind)
	if err != nil {
		h.log(c, "AdminList", logrus.Fields{"kind": kind}).WithError(err).Error("failed to load listings")
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, newListingCollection(kind, listings))
}

// Save creates a listing, or replaces the one named by edit_id.
func (h *ListingHandler) Save(c *gin.Context) {
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c, "Save", logrus.Fields{"error_kind": "bad_request"}).WithError(err).Error("failed to decode listing request")
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}
	principal, _ := principalFrom(c)

	form := req.toForm()
	listing, err := h.listings.SaveListing(c.Request.Context(), principal, form)
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if form.EditID != "" {
		status = http.StatusOK
	}
	h.responder.writeJSON(c, status, toListingDTO(listing))
}

func (h *ListingHandler) Patch(c *gin.Context) {
	kind, ok := h.kindQuery(c)
	if !ok {
		return
	}

	var req listingPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log(c, "Patch", logrus.Fields{"error_kind": "bad_request"}).WithError(err).Error("failed to decode listing patch")
		h.responder.writeError(c, http.StatusBadRequest, errBadRequestBody)
		return
	}
	principal, _ := principalFrom(c)

	listing, err := h.listings.PatchListing(c.Request.Context(), principal, kind, c.Param("id"), req.toPatch())
	if err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusOK, toListingDTO(listing))
}

// Delete hard-deletes a listing. The request must carry confirm=true.
func (h *ListingHandler) Delete(c *gin.Context) {
	kind, ok := h.kindQuery(c)
	if !ok {
		return
	}
	principal, _ := principalFrom(c)
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	if err := h.listings.DeleteListing(c.Request.Context(), principal, kind, c.Param("id"), confirmed); err != nil {
		h.responder.handleServiceError(c, err)
		return
	}
	h.responder.writeJSON(c, http.StatusNoContent, nil)
}

// kindQuery reads ?kind=, defaulting to houses. It writes a 400 and reports
// false for unknown kinds.
func (h *ListingHandler) kindQuery(c *gin.Context) (application.ListingKind, bool) {
	raw := strings.TrimSpace(c.Query("kind"))
	if raw == "" {
		return application.ListingKindHouse, true
	}
	kind, ok := application.ParseListingKind(raw)
	if !ok {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidListingKind)
		return "", false
	}
	return kind, true
}

type filterQuery struct {
	City     string `form:"city"`
	MaxPrice string `form:"max_price"`
	MinSize  string `form:"min_size"`
}

func (q filterQuery) toFilter() (application.ListingFilter, error) {
	filter := application.ListingFilter{CityContains: strings.TrimSpace(q.City)}
	if raw := strings.TrimSpace(q.MaxPrice); raw != "" {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return application.ListingFilter{}, err
		}
		filter.MaxPrice = &price
	}
	if raw := strings.TrimSpace(q.MinSize); raw != "" {
		size, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return application.ListingFilter{}, err
		}
		filter.MinSize = &size
	}
	return filter, nil
}

type listingRequest struct {
	EditID        string   `json:"edit_id"`
	Kind          string   `json:"kind"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Address       string   `json:"address"`
	Prefecture    string   `json:"prefecture"`
	City          string   `json:"city"`
	AddressDetail string   `json:"addressDetail"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	Price         *int64   `json:"price"`
	Size          *float64 `json:"size"`
	Images        []string `json:"images"`
	Period        string   `json:"period"`
	ImageURL      string   `json:"imageUrl"`
}

func (r listingRequest) toForm() application.ListingForm {
	kind, ok := application.ParseListingKind(r.Kind)
	if !ok {
		kind = application.ListingKind(strings.TrimSpace(r.Kind))
	}
	return application.ListingForm{
		EditID: strings.TrimSpace(r.EditID),
		Input: application.ListingInput{
			Kind:          kind,
			Title:         r.Title,
			Description:   r.Description,
			Address:       r.Address,
			Prefecture:    r.Prefecture,
			City:          r.City,
			AddressDetail: r.AddressDetail,
			Lat:           r.Lat,
			Lng:           r.Lng,
			Price:         r.Price,
			Size:          r.Size,
			Images:        r.Images,
			Period:        r.Period,
			ImageURL:      r.ImageURL,
		},
	}
}

type listingPatchRequest struct {
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	Address       *string   `json:"address"`
	Prefecture    *string   `json:"prefecture"`
	City          *string   `json:"city"`
	AddressDetail *string   `json:"addressDetail"`
	Lat           *float64  `json:"lat"`
	Lng           *float64  `json:"lng"`
	ClearLocation bool      `json:"clearLocation"`
	Price         *int64    `json:"price"`
	Size          *float64  `json:"size"`
	Images        *[]string `json:"images"`
	Period        *string   `json:"period"`
	ImageURL      *string   `json:"imageUrl"`
}

func (r listingPatchRequest) toPatch() application.ListingPatch {
	return application.ListingPatch{
		Title:         r.Title,
		Description:   r.Description,
		Address:       r.Address,
		Prefecture:    r.Prefecture,
		City:          r.City,
		AddressDetail: r.AddressDetail,
		Lat:           r.Lat,
		Lng:           r.Lng,
		ClearLocation: r.ClearLocation,
		Price:         r.Price,
		Size:          r.Size,
		Images:        r.Images,
		Period:        r.Period,
		ImageURL:      r.ImageURL,
	}
}

type listingDTO struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Address       string   `json:"address,omitempty"`
	Prefecture    string   `json:"prefecture,omitempty"`
	City          string   `json:"city"`
	AddressDetail string   `json:"addressDetail,omitempty"`
	FullAddress   string   `json:"fullAddress"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	Price         *int64   `json:"price"`
	Size          *float64 `json:"size"`
	Images        []string `json:"images"`
	Period        string   `json:"period,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

func toListingDTO(listing application.Listing) listingDTO {
	images := listing.Images
	if images == nil {
		images = []string{}
	}
	return listingDTO{
		ID:            listing.ID,
		Kind:          string(listing.Kind),
		Title:         listing.Title,
		Description:   listing.Description,
		Address:       listing.Address,
		Prefecture:    listing.Prefecture,
		City:          listing.City,
		AddressDetail: listing.AddressDetail,
		FullAddress:   listing.FullAddress(),
		Lat:           listing.Lat(),
		Lng:           listing.Lng(),
		Price:         listing.Price,
		Size:          listing.Size,
		Images:        images,
		Period:        listing.Period,
		ImageURL:      listing.ImageURL,
		CreatedAt:     listing.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     listing.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type listingCollection struct {
	Kind    string       `json:"kind"`
	Items   []listingDTO `json:"items"`
	Message string       `json:"message,omitempty"`
}

func newListingCollection(kind application.ListingKind, listings []application.Listing) listingCollection {
	items := make([]listingDTO, 0, len(listings))
	for _, listing := range listings {
		items = append(items, toListingDTO(listing))
	}
	collection := listingCollection{Kind: string(kind), Items: items}
	if len(items) == 0 {
		collection.Message = emptyCatalogMessage(kind)
	}
	return collection
}

func emptyCatalogMessage(kind application.ListingKind) string {
	if kind == application.ListingKindMuseum {
		return "No museums found."
	}
	return "No houses found."
}
