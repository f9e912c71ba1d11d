package http

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/application"
)

//go:embed templates/*.html
var templateFS embed.FS

// alertMessages are the only texts a ?alert= code can put on a page.
var alertMessages = map[string]string{
	"login_required":                  "Please login first to book a visit.",
	"login_first":                     "Please login first.",
	"confirm_login":                   "Please login to confirm reservation.",
	application.AlertNotAdmin:         "You are not authorized to access this page.",
	application.AlertAdminCheckFailed: "Error checking admin. Please try again later.",
	"signup_success":                  "Signup successful!",
	"logout_failed":                   "Error logging out.",
	"reservation_approved":            "Reservation approved!",
	"reservation_declined":            "Reservation declined!",
	"status_update_failed":            "Error updating reservation.",
	"house_added":                     "House added!",
	"house_updated":                   "House updated!",
	"house_deleted":                   "House deleted.",
	"house_not_found":                 "House not found.",
	"museum_added":                    "Museum added!",
	"museum_updated":                  "Museum updated!",
	"museum_deleted":                  "Museum deleted.",
	"museum_not_found":                "Museum not found.",
	"listing_delete_failed":           "Error deleting listing.",
	"listing_load_failed":             "Error loading listing for editing.",
	"draft_discarded":                 "Reservation cancelled.",
}

var japaneseWeekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

func parseTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(template.FuncMap{
		"firstImage":   firstImage,
		"museumTitle":  museumTitle,
		"museumPrice":  museumPrice,
		"japaneseDate": japaneseDate,
		"orNone":       orNone,
		"kindLabel":    kindLabel,
	}).ParseFS(templateFS, "templates/*.html")
}

func firstImage(images []string) string {
	if len(images) == 0 {
		return ""
	}
	return images[0]
}

func museumTitle(listing application.Listing) string {
	if strings.TrimSpace(listing.Title) == "" {
		return "名称未設定"
	}
	return listing.Title
}

func museumPrice(listing application.Listing) string {
	if listing.Price == nil {
		return "未設定"
	}
	return strconv.FormatInt(*listing.Price, 10) + "円"
}

// japaneseDate renders YYYY-MM-DD as "2025年6月2日(月)".
func japaneseDate(date string) string {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d年%d月%d日(%s)", day.Year(), int(day.Month()), day.Day(), japaneseWeekdays[day.Weekday()])
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "None"
	}
	return value
}

func kindLabel(kind application.ListingKind) string {
	if kind == application.ListingKindMuseum {
		return "Museum"
	}
	return "House"
}

// PageOptions configures the HTML pages.
type PageOptions struct {
	Auth          authService
	Listings      listingService
	Catalog       catalogService
	Snapshots     snapshotForgetter
	Reservations  reservationService
	Drafts        draftService
	StagedFlow    bool
	LegacyAdmin   bool
	SecureCookies bool
	Logger        *logrus.Logger
}

// PageHandler renders the server side pages and handles their form posts.
type PageHandler struct {
	opts   PageOptions
	logger *logrus.Logger
}

func NewPageHandler(opts PageOptions) *PageHandler {
	base := defaultLogger(opts.Logger)
	opts.Logger = base
	return &PageHandler{opts: opts, logger: base}
}

func (h *PageHandler) log(c *gin.Context, operation string, fields logrus.Fields) *logrus.Entry {
	return handlerLogger(c.Request.Context(), h.logger, "PageHandler", operation, fields)
}

type page struct {
	Title    string
	SignedIn bool
	IsAdmin  bool
	Alert    string
}

func (h *PageHandler) page(c *gin.Context, title string) page {
	p := page{Title: title, Alert: alertMessages[c.Query("alert")]}
	if principal, ok := principalFrom(c); ok {
		p.SignedIn = true
		p.IsAdmin = principal.IsAdmin
	}
	return p
}

func roleHome(principal application.Principal) string {
	if principal.IsAdmin {
		return "/admin"
	}
	return "/"
}

// ----------------------------- Sign in / out -----------------------------

type loginView struct {
	page
	Email string
	Error string
}

func (h *PageHandler) LoginPage(c *gin.Context) {
	if principal, ok := principalFrom(c); ok {
		c.Redirect(http.StatusFound, roleHome(principal))
		return
	}
	c.HTML(http.StatusOK, "login.html", loginView{page: h.page(c, "Login")})
}

func (h *PageHandler) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	result, err := h.opts.Auth.Authenticate(c.Request.Context(), application.AuthenticateParams{
		Email:    email,
		Password: c.PostForm("password"),
	})
	if err != nil {
		view := loginView{page: h.page(c, "Login"), Email: email, Error: "Invalid email or password."}
		status := http.StatusUnauthorized
		if !errors.Is(err, application.ErrInvalidCredentials) {
			h.log(c, "Login", nil).WithError(err).Error("sign in failed")
			view.Error = "Error signing in. Please try again later."
			status = http.StatusInternalServerError
		}
		c.HTML(status, "login.html", view)
		return
	}

	setSessionCookie(c, result.Session.Token, result.Session.ExpiresAt, h.opts.SecureCookies)
	c.Redirect(http.StatusFound, roleHome(application.Principal{UserID: result.User.ID, IsAdmin: result.User.IsAdmin}))
}

type signupView struct {
	page
	LegacyAdmin bool
	Name        string
	Email       string
	Phone       string
	Errors      map[string]string
	Error       string
}

func (h *PageHandler) SignupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", signupView{page: h.page(c, "Sign up"), LegacyAdmin: h.opts.LegacyAdmin})
}

func (h *PageHandler) Signup(c *gin.Context) {
	params := application.SignUpParams{
		Name:      c.PostForm("name"),
		Email:     c.PostForm("email"),
		Phone:     c.PostForm("phone"),
		Password:  c.PostForm("password"),
		AdminCode: c.PostForm("admin_code"),
	}
	if _, err := h.opts.Auth.SignUp(c.Request.Context(), params); err != nil {
		view := signupView{
			page:        h.page(c, "Sign up"),
			LegacyAdmin: h.opts.LegacyAdmin,
			Name:        params.Name,
			Email:       params.Email,
			Phone:       params.Phone,
		}
		var vErr *application.ValidationError
		status := http.StatusUnprocessableEntity
		switch {
		case errors.As(err, &vErr):
			view.Errors = vErr.FieldErrors
		case errors.Is(err, application.ErrAlreadyExists):
			view.Error = "This email is already registered."
			status = http.StatusConflict
		default:
			h.log(c, "Signup", nil).WithError(err).Error("sign up failed")
			view.Error = "Error signing up. Please try again later."
			status = http.StatusInternalServerError
		}
		c.HTML(status, "signup.html", view)
		return
	}
	c.Redirect(http.StatusFound, alertURL("/login", "signup_success"))
}

func (h *PageHandler) Logout(c *gin.Context) {
	token := extractTokenFromRequest(c.Request)
	if token != "" {
		if err := h.opts.Auth.RevokeSession(c.Request.Context(), token); err != nil && !errors.Is(err, application.ErrInvalidCredentials) {
			h.log(c, "Logout", nil).WithError(err).Error("failed to revoke session")
			c.Redirect(http.StatusFound, alertURL("/", "logout_failed"))
			return
		}
		if h.opts.Snapshots != nil {
			h.opts.Snapshots.Forget(token)
		}
	}
	clearSessionCookie(c, h.opts.SecureCookies)
	c.Redirect(http.StatusFound, "/login")
}

// -------------------------------- Catalog --------------------------------

type catalogView struct {
	page
	Kind      application.ListingKind
	IsMuseum  bool
	City      string
	MaxPrice  string
	MinSize   string
	Listings  []application.Listing
	Empty     string
	LoadError string
}

// Catalog loads the selected collection fresh and applies the query string filter.
func (h *PageHandler) Catalog(c *gin.Context) {
	kind, ok := application.ParseListingKind(c.DefaultQuery("kind", "house"))
	if !ok {
		kind = application.ListingKindHouse
	}
	view := catalogView{
		page:     h.page(c, kindLabel(kind)+"s"),
		Kind:     kind,
		IsMuseum: kind == application.ListingKindMuseum,
		City:     c.Query("city"),
		MaxPrice: c.Query("max_price"),
		MinSize:  c.Query("min_size"),
	}

	listings, err := h.opts.Catalog.Load(c.Request.Context(), sessionTokenFrom(c), kind)
	if err != nil {
		h.log(c, "Catalog", logrus.Fields{"kind": kind}).WithError(err).Error("failed to load listings")
		view.LoadError = fmt.Sprintf("Error loading %ss: %s", kind, err.Error())
		c.HTML(http.StatusOK, "catalog.html", view)
		return
	}

	view.Listings = application.FilterListings(listings, lenientFilter(view.City, view.MaxPrice, view.MinSize))
	if len(view.Listings) == 0 {
		view.Empty = emptyCatalogMessage(kind)
	}
	c.HTML(http.StatusOK, "catalog.html", view)
}

// lenientFilter treats unparsable numbers as absent predicates.
func lenientFilter(city, maxPrice, minSize string) application.ListingFilter {
	filter := application.ListingFilter{CityContains: strings.TrimSpace(city)}
	if price, err := strconv.ParseInt(strings.TrimSpace(maxPrice), 10, 64); err == nil {
		filter.MaxPrice = &price
	}
	if size, err := strconv.ParseFloat(strings.TrimSpace(minSize), 64); err == nil {
		filter.MinSize = &size
	}
	return filter
}

// Book starts a reservation for a listing, sending signed out visitors to login.
func (h *PageHandler) Book(c *gin.Context) {
	if _, ok := principalFrom(c); !ok {
		c.Redirect(http.StatusFound, alertURL("/login", "login_required"))
		return
	}
	kind, ok := application.ParseListingKind(c.DefaultQuery("kind", "house"))
	if !ok {
		kind = application.ListingKindHouse
	}
	param := "houseId"
	if kind == application.ListingKindMuseum {
		param = "museumId"
	}
	c.Redirect(http.StatusFound, "/reservations/new?"+url.Values{param: {c.Param("id")}}.Encode())
}

// ------------------------------ Reservations -----------------------------

type intakeView struct {
	page
	Message            string
	Disabled           bool
	Listing            application.Listing
	HouseID            string
	MuseumID           string
	Name               string
	Email              string
	Contact            string
	Date               string
	Payment            string
	Remarks            string
	MinDate            string
	RemarksPlaceholder string
	StagedFlow         bool
	FormError          string
	Errors             map[string]string
}

func (h *PageHandler) IntakePage(c *gin.Context) {
	principal, _ := principalFrom(c)
	ref := application.ListingRef{HouseID: c.Query("houseId"), MuseumID: c.Query("museumId")}
	c.HTML(h.renderIntake(c, principal, ref, nil))
}

func (h *PageHandler) renderIntake(c *gin.Context, principal application.Principal, ref application.ListingRef, submitted *application.ReservationInput) (int, string, intakeView) {
	view := intakeView{
		page:       h.page(c, "Reserve a visit"),
		HouseID:    strings.TrimSpace(ref.HouseID),
		MuseumID:   strings.TrimSpace(ref.MuseumID),
		StagedFlow: h.opts.StagedFlow,
	}

	form, err := h.opts.Reservations.PrepareIntake(c.Request.Context(), principal, ref)
	switch {
	case errors.Is(err, application.ErrNoListingSelected):
		view.Message = "No item selected."
		view.Disabled = true
		return http.StatusOK, "reservation_form.html", view
	case errors.Is(err, application.ErrNotFound):
		kind, _ := ref.Kind()
		view.Message = kindLabel(kind) + " not found."
		view.Disabled = true
		return http.StatusNotFound, "reservation_form.html", view
	case err != nil:
		h.log(c, "IntakePage", nil).WithError(err).Error("failed to prepare intake")
		view.Message = "Error loading reservation form."
		view.Disabled = true
		return http.StatusInternalServerError, "reservation_form.html", view
	}

	view.Listing = form.Listing
	view.MinDate = form.MinDate
	view.RemarksPlaceholder = form.RemarksPlaceholder
	view.Name, view.Email, view.Contact = form.Name, form.Email, form.Contact
	if submitted != nil {
		view.Name, view.Email, view.Contact = submitted.Name, submitted.Email, submitted.Contact
		view.Date, view.Payment, view.Remarks = submitted.Date, submitted.Payment, submitted.Remarks
	}
	return http.StatusOK, "reservation_form.html", view
}

type reservationDoneView struct {
	page
	Reservation application.Reservation
	ItemTitle   string
}

// SubmitReservation writes the reservation directly, or stages it when the
// staged flow is enabled.
func (h *PageHandler) SubmitReservation(c *gin.Context) {
	principal, _ := principalFrom(c)
	input := application.ReservationInput{
		Listing: application.ListingRef{HouseID: c.PostForm("houseId"), MuseumID: c.PostForm("museumId")},
		Name:    c.PostForm("name"),
		Email:   c.PostForm("email"),
		Contact: c.PostForm("contact"),
		Date:    c.PostForm("date"),
		Payment: c.PostForm("payment"),
		Remarks: c.PostForm("remarks"),
	}

	if h.opts.StagedFlow {
		if _, err := h.opts.Drafts.Stage(c.Request.Context(), sessionTokenFrom(c), principal, input); err != nil {
			h.intakeFailed(c, principal, input, err)
			return
		}
		c.Redirect(http.StatusFound, "/reservations/confirm")
		return
	}

	reservation, err := h.opts.Reservations.Submit(c.Request.Context(), principal, input)
	if err != nil {
		h.intakeFailed(c, principal, input, err)
		return
	}
	c.HTML(http.StatusCreated, "reservation_done.html", h.doneView(c, reservation))
}

func (h *PageHandler) intakeFailed(c *gin.Context, principal application.Principal, input application.ReservationInput, err error) {
	status, name, view := h.renderIntake(c, principal, input.Listing, &input)
	if view.Disabled {
		c.HTML(status, name, view)
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		view.Errors = vErr.FieldErrors
		view.FormError = intakeErrorSummary(vErr)
		c.HTML(http.StatusUnprocessableEntity, name, view)
		return
	}

	h.log(c, "SubmitReservation", nil).WithError(err).Error("failed to submit reservation")
	view.FormError = "Error submitting reservation."
	c.HTML(http.StatusInternalServerError, name, view)
}

func intakeErrorSummary(vErr *application.ValidationError) string {
	fields := vErr.FieldErrors
	if _, ok := fields["date"]; ok {
		if fields["date"] == "date is required" {
			return "Please select a visit date."
		}
		return "Please choose a valid visit date."
	}
	for _, field := range []string{"name", "email", "contact"} {
		if _, ok := fields[field]; ok {
			return "Please fill name, email and contact number."
		}
	}
	return "Please check the reservation details."
}

func (h *PageHandler) doneView(c *gin.Context, reservation application.Reservation) reservationDoneView {
	view := reservationDoneView{page: h.page(c, "Reservation confirmed"), Reservation: reservation}
	kind, id := reservation.ListingRef().Kind()
	if listing, err := h.opts.Listings.GetListing(c.Request.Context(), kind, id); err == nil {
		view.ItemTitle = listing.DisplayTitle()
	}
	return view
}

type confirmView struct {
	page
	Draft     application.Draft
	VisitDate string
	ItemTitle string
	Message   string
	FormError string
}

func (h *PageHandler) ConfirmPage(c *gin.Context) {
	status, view := h.confirmView(c)
	c.HTML(status, "reservation_confirm.html", view)
}

func (h *PageHandler) confirmView(c *gin.Context) (int, confirmView) {
	view := confirmView{page: h.page(c, "Confirm reservation")}

	draft, err := h.opts.Drafts.Load(c.Request.Context(), sessionTokenFrom(c))
	if err != nil {
		if errors.Is(err, application.ErrDraftNotFound) {
			view.Message = "No reservation data found."
			return http.StatusOK, view
		}
		h.log(c, "ConfirmPage", nil).WithError(err).Error("failed to load draft")
		view.Message = "Error loading reservation data."
		return http.StatusInternalServerError, view
	}

	view.Draft = draft
	if date, err := h.opts.Drafts.DraftDate(draft); err == nil {
		view.VisitDate = date
	}
	kind, id := application.ListingRef{HouseID: draft.HouseID, MuseumID: draft.MuseumID}.Kind()
	if listing, err := h.opts.Listings.GetListing(c.Request.Context(), kind, id); err == nil {
		view.ItemTitle = listing.DisplayTitle()
	}
	return http.StatusOK, view
}

func (h *PageHandler) Confirm(c *gin.Context) {
	principal, _ := principalFrom(c)

	reservation, err := h.opts.Drafts.Confirm(c.Request.Context(), sessionTokenFrom(c), principal)
	if err != nil {
		status, view := h.confirmView(c)
		if view.Message == "" {
			var vErr *application.ValidationError
			switch {
			case errors.As(err, &vErr):
				view.FormError = "Please choose a valid visit date."
				status = http.StatusUnprocessableEntity
			default:
				h.log(c, "Confirm", nil).WithError(err).Error("failed to confirm reservation")
				view.FormError = "Error saving reservation."
				status = http.StatusInternalServerError
			}
		}
		c.HTML(status, "reservation_confirm.html", view)
		return
	}
	c.HTML(http.StatusCreated, "reservation_done.html", h.doneView(c, reservation))
}

func (h *PageHandler) CancelDraft(c *gin.Context) {
	if err := h.opts.Drafts.Discard(c.Request.Context(), sessionTokenFrom(c)); err != nil {
		h.log(c, "CancelDraft", nil).WithError(err).Error("failed to discard draft")
	}
	c.Redirect(http.StatusFound, alertURL("/", "draft_discarded"))
}

// --------------------------------- Admin ---------------------------------

type listingFormView struct {
	EditID        string
	Kind          application.ListingKind
	Title         string
	Description   string
	Address       string
	Prefecture    string
	City          string
	AddressDetail string
	Lat           string
	Lng           string
	Price         string
	Size          string
	Images        string
	Period        string
	ImageURL      string
}

type adminView struct {
	page
	Kind              application.ListingKind
	Reservations      []application.Reservation
	ReservationsEmpty bool
	ReservationsError string
	Listings          []application.Listing
	ListingsError     string
	Form              listingFormView
	FormError         string
	Errors            map[string]string
}

func (h *PageHandler) AdminPage(c *gin.Context) {
	kind := adminKind(c.DefaultQuery("kind", "house"))
	form := listingFormView{Kind: kind}

	if editID := strings.TrimSpace(c.Query("edit")); editID != "" {
		principal, _ := principalFrom(c)
		existing, err := h.opts.Listings.EditListingForm(c.Request.Context(), principal, kind, editID)
		switch {
		case errors.Is(err, application.ErrNotFound):
			c.Redirect(http.StatusFound, alertURL("/admin?kind="+string(kind), string(kind)+"_not_found"))
			return
		case err != nil:
			h.log(c, "AdminPage", logrus.Fields{"listing_id": editID}).WithError(err).Error("failed to load listing for editing")
			c.Redirect(http.StatusFound, alertURL("/admin?kind="+string(kind), "listing_load_failed"))
			return
		}
		form = formFromListing(existing)
	}

	c.HTML(http.StatusOK, "admin.html", h.adminView(c, kind, form))
}

func (h *PageHandler) adminView(c *gin.Context, kind application.ListingKind, form listingFormView) adminView {
	principal, _ := principalFrom(c)
	view := adminView{page: h.page(c, "Admin"), Kind: kind, Form: form}

	reservations, err := h.opts.Reservations.ListReservations(c.Request.Context(), principal)
	if err != nil {
		h.log(c, "AdminPage", nil).WithError(err).Error("failed to load reservations")
		view.ReservationsError = "Error loading reservations: " + err.Error()
	} else {
		view.Reservations = reservations
		view.ReservationsEmpty = len(reservations) == 0
	}

	listings, err := h.opts.Listings.ListListingsForAdmin(c.Request.Context(), principal, kind)
	if err != nil {
		h.log(c, "AdminPage", logrus.Fields{"kind": kind}).WithError(err).Error("failed to load listings")
		view.ListingsError = fmt.Sprintf("Error loading %ss: %s", kind, err.Error())
	} else {
		view.Listings = listings
	}
	return view
}

// SaveListing handles the admin listing form. An empty edit_id creates.
func (h *PageHandler) SaveListing(c *gin.Context) {
	principal, _ := principalFrom(c)
	formView := listingFormView{
		EditID:        strings.TrimSpace(c.PostForm("edit_id")),
		Kind:          adminKind(c.PostForm("kind")),
		Title:         c.PostForm("title"),
		Description:   c.PostForm("description"),
		Address:       c.PostForm("address"),
		Prefecture:    c.PostForm("prefecture"),
		City:          c.PostForm("city"),
		AddressDetail: c.PostForm("address_detail"),
		Lat:           c.PostForm("lat"),
		Lng:           c.PostForm("lng"),
		Price:         c.PostForm("price"),
		Size:          c.PostForm("size"),
		Images:        c.PostForm("images"),
		Period:        c.PostForm("period"),
		ImageURL:      c.PostForm("image_url"),
	}

	form, parseErrs := formView.toForm()
	var err error
	if len(parseErrs) > 0 {
		err = &application.ValidationError{FieldErrors: parseErrs}
	} else {
		_, err = h.opts.Listings.SaveListing(c.Request.Context(), principal, form)
	}

	if err != nil {
		var vErr *application.ValidationError
		switch {
		case errors.As(err, &vErr):
			view := h.adminView(c, formView.Kind, formView)
			view.FormError = "Please fill in all required fields."
			view.Errors = vErr.FieldErrors
			c.HTML(http.StatusUnprocessableEntity, "admin.html", view)
		case errors.Is(err, application.ErrNotFound):
			c.Redirect(http.StatusFound, alertURL("/admin?kind="+string(formView.Kind), string(formView.Kind)+"_not_found"))
		default:
			h.log(c, "SaveListing", nil).WithError(err).Error("failed to save listing")
			view := h.adminView(c, formView.Kind, formView)
			view.FormError = fmt.Sprintf("Error saving %s.", formView.Kind)
			c.HTML(http.StatusInternalServerError, "admin.html", view)
		}
		return
	}

	alert := string(formView.Kind) + "_added"
	if formView.EditID != "" {
		alert = string(formView.Kind) + "_updated"
	}
	c.Redirect(http.StatusFound, alertURL("/admin?kind="+string(formView.Kind), alert))
}

type deleteConfirmView struct {
	page
	Listing application.Listing
}

// DeleteListing shows a confirmation page unless the form carries confirm=yes.
func (h *PageHandler) DeleteListing(c *gin.Context) {
	principal, _ := principalFrom(c)
	kind := adminKind(c.DefaultQuery("kind", c.PostForm("kind")))
	id := c.Param("id")
	back := "/admin?kind=" + string(kind)

	if c.PostForm("confirm") != "yes" {
		listing, err := h.opts.Listings.GetListing(c.Request.Context(), kind, id)
		if err != nil {
			c.Redirect(http.StatusFound, alertURL(back, string(kind)+"_not_found"))
			return
		}
		c.HTML(http.StatusOK, "delete_confirm.html", deleteConfirmView{page: h.page(c, "Delete listing"), Listing: listing})
		return
	}

	if err := h.opts.Listings.DeleteListing(c.Request.Context(), principal, kind, id, true); err != nil {
		h.log(c, "DeleteListing", logrus.Fields{"listing_id": id}).WithError(err).Error("failed to delete listing")
		alert := "listing_delete_failed"
		if errors.Is(err, application.ErrNotFound) {
			alert = string(kind) + "_not_found"
		}
		c.Redirect(http.StatusFound, alertURL(back, alert))
		return
	}
	c.Redirect(http.StatusFound, alertURL(back, string(kind)+"_deleted"))
}

// SetReservationStatus applies an approve or decline and reloads the console.
func (h *PageHandler) SetReservationStatus(c *gin.Context) {
	principal, _ := principalFrom(c)
	reservation, err := h.opts.Reservations.SetReservationStatus(c.Request.Context(), principal, c.Param("id"), c.PostForm("status"))
	if err != nil {
		h.log(c, "SetReservationStatus", logrus.Fields{"reservation_id": c.Param("id")}).WithError(err).Error("failed to update reservation")
		c.Redirect(http.StatusFound, alertURL("/admin", "status_update_failed"))
		return
	}
	c.Redirect(http.StatusFound, alertURL("/admin", "reservation_"+reservation.Status))
}

func adminKind(raw string) application.ListingKind {
	kind, ok := application.ParseListingKind(raw)
	if !ok {
		return application.ListingKindHouse
	}
	return kind
}

func formFromListing(form application.ListingForm) listingFormView {
	input := form.Input
	view := listingFormView{
		EditID:        form.EditID,
		Kind:          input.Kind,
		Title:         input.Title,
		Description:   input.Description,
		Address:       input.Address,
		Prefecture:    input.Prefecture,
		City:          input.City,
		AddressDetail: input.AddressDetail,
		Images:        strings.Join(input.Images, ", "),
		Period:        input.Period,
		ImageURL:      input.ImageURL,
	}
	if input.Lat != nil {
		view.Lat = strconv.FormatFloat(*input.Lat, 'f', -1, 64)
	}
	if input.Lng != nil {
		view.Lng = strconv.FormatFloat(*input.Lng, 'f', -1, 64)
	}
	if input.Price != nil {
		view.Price = strconv.FormatInt(*input.Price, 10)
	}
	if input.Size != nil {
		view.Size = strconv.FormatFloat(*input.Size, 'f', -1, 64)
	}
	return view
}

// toForm converts the posted strings. Blank numbers stay nil; malformed
// numbers are reported per field.
func (v listingFormView) toForm() (application.ListingForm, map[string]string) {
	errs := map[string]string{}
	input := application.ListingInput{
		Kind:          v.Kind,
		Title:         v.Title,
		Description:   v.Description,
		Address:       v.Address,
		Prefecture:    v.Prefecture,
		City:          v.City,
		AddressDetail: v.AddressDetail,
		Images:        application.SplitImageList(v.Images),
		Period:        v.Period,
		ImageURL:      v.ImageURL,
	}
	input.Lat = parseFloatField("lat", v.Lat, errs)
	input.Lng = parseFloatField("lng", v.Lng, errs)
	input.Size = parseFloatField("size", v.Size, errs)
	if raw := strings.TrimSpace(v.Price); raw != "" {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs["price"] = "price must be a whole number"
		} else {
			input.Price = &price
		}
	}
	return application.ListingForm{EditID: v.EditID, Input: input}, errs
}

func parseFloatField(field, raw string, errs map[string]string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		errs[field] = field + " must be a number"
		return nil
	}
	return &value
}
