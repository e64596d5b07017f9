package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/safeguard/internal/admin"
	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/geocoder89/safeguard/internal/http/middlewares"
	"github.com/geocoder89/safeguard/internal/notifications"
)

type AdminHandler struct {
	dir    *admin.Directory
	access *admin.DBAccess
	dbURL  string
	now    func() time.Time
}

// NewAdminHandler serves the admin pages. databaseURL is where the database
// dashboard lives once access is granted.
func NewAdminHandler(dir *admin.Directory, access *admin.DBAccess, databaseURL string) *AdminHandler {
	return &AdminHandler{dir: dir, access: access, dbURL: databaseURL, now: time.Now}
}

type usersView struct {
	Users  []user.User `json:"users"`
	Total  int         `json:"total"`
	Search string      `json:"search"`
	Stats  admin.Stats `json:"stats"`
}

func (h *AdminHandler) loadUsers(ctx *gin.Context) (usersView, error) {
	token, _ := middlewares.StoreFrom(ctx).GetToken(ctx.Request.Context())
	refresh, _ := strconv.ParseBool(ctx.Query("refresh"))

	all, err := h.dir.List(ctx.Request.Context(), token, refresh)
	if err != nil {
		return usersView{}, err
	}

	search := ctx.Query("search")
	found := admin.Search(all, search)
	return usersView{
		Users:  found,
		Total:  len(found),
		Search: search,
		Stats:  admin.ComputeStats(all, h.now()),
	}, nil
}

// ListUsers serves the directory with an ETag so the users table can poll
// cheaply.
func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	view, err := h.loadUsers(ctx)
	if err != nil {
		respondBackendErr(ctx, err)
		return
	}
	RespondJSONWithETag(ctx, http.StatusOK, envelope{Success: true, Message: "ok", Data: view})
}

func (h *AdminHandler) Stats(ctx *gin.Context) {
	view, err := h.loadUsers(ctx)
	if err != nil {
		respondBackendErr(ctx, err)
		return
	}
	respondData(ctx, http.StatusOK, "ok", view.Stats)
}

type databaseView struct {
	Status         admin.AccessStatus `json:"status"`
	TimeoutOptions []int              `json:"timeoutOptions"`
	DatabaseURL    string             `json:"databaseUrl"`
}

func (h *AdminHandler) databaseView() databaseView {
	return databaseView{
		Status:         h.access.Status(),
		TimeoutOptions: admin.TimeoutOptions,
		DatabaseURL:    h.dbURL,
	}
}

func (h *AdminHandler) DatabaseStatus(ctx *gin.Context) {
	ctx.Header("Cache-Control", "no-store")
	respondData(ctx, http.StatusOK, "ok", h.databaseView())
}

type enableAccessRequest struct {
	Timeout int `json:"timeout" binding:"required,oneof=10 15 30 60"`
}

func (h *AdminHandler) EnableDatabase(ctx *gin.Context) {
	var in enableAccessRequest
	if !BindJSON(ctx, &in) {
		return
	}

	requestedBy := ""
	if u, ok := middlewares.StoreFrom(ctx).GetUser(ctx.Request.Context()); ok {
		requestedBy = u.Email
	}

	_, err := h.access.Enable(ctx.Request.Context(), in.Timeout, requestedBy)
	switch {
	case err == nil:
		respondData(ctx, http.StatusOK,
			"Database access enabled for "+strconv.Itoa(in.Timeout)+" minutes", h.databaseView())
	case errors.Is(err, admin.ErrInvalidTimeout):
		RespondBadRequest(ctx, err.Error(), nil)
	case errors.Is(err, admin.ErrAccessActive):
		RespondError(ctx, http.StatusConflict, "access_active", err.Error(), h.databaseView())
	case errors.Is(err, notifications.ErrCircuitOpen):
		RespondError(ctx, http.StatusServiceUnavailable, "webhook_unavailable",
			"Failed to enable database access: webhook temporarily unavailable", nil)
	default:
		var hookErr *notifications.HTTPError
		msg := "Failed to enable database access: " + err.Error()
		if errors.As(err, &hookErr) {
			msg = "Failed to enable database access: " + hookErr.Error()
		}
		RespondError(ctx, http.StatusBadGateway, "webhook_failed", msg, nil)
	}
}
