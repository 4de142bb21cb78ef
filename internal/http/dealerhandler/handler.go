package dealerhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"motortrade/internal/http/httperr"
	"motortrade/internal/http/middleware"
	"motortrade/internal/services/dealer"
)

type FavoriteBody struct {
	DealerID string `json:"dealerId" binding:"required"`
} // @name FavoriteRequest

type Handler struct {
	svc dealer.IDealerService
}

func New(svc dealer.IDealerService) *Handler { return &Handler{svc: svc} }

// Register mounts profile and catalogue routes; all of them need a caller.
func (h *Handler) Register(r gin.IRouter, required gin.HandlerFunc) {
	g := r.Group("", required)
	g.GET("/users/me", h.me)
	g.PUT("/users/me", h.upsertMe)
	g.POST("/users/me/favorites", h.addFavorite)
	g.DELETE("/users/me/favorites/:dealerId", h.removeFavorite)

	g.POST("/motorcycles", h.createMotorcycle)
	g.GET("/motorcycles", h.listMotorcycles)
	g.GET("/motorcycles/:id", h.getMotorcycle)
	g.PATCH("/motorcycles/:id", h.updateMotorcycle)
}

// @Summary		Own dealer profile
// @Tags			Dealers
// @Security		BearerAuth
// @Success		200	{object}	domain.User
// @Failure		404	{object}	httperr.ErrorResponse
// @Router			/users/me [get]
func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetProfile(c.Request.Context(), middleware.UserID(c))
	respond(c, http.StatusOK, u, err)
}

// @Summary		Create or update own dealer profile
// @Tags			Dealers
// @Security		BearerAuth
// @Param			body	body		dealer.ProfileInput	true	"Profile"
// @Success		200		{object}	domain.User
// @Failure		400		{object}	httperr.ErrorResponse
// @Router			/users/me [put]
func (h *Handler) upsertMe(c *gin.Context) {
	var body dealer.ProfileInput
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	u, err := h.svc.UpsertProfile(c.Request.Context(), middleware.UserID(c), body)
	respond(c, http.StatusOK, u, err)
}

// @Summary		Invite a dealer to favorites-only auctions
// @Tags			Dealers
// @Security		BearerAuth
// @Param			body	body		FavoriteBody	true	"Dealer"
// @Success		200		{object}	domain.User
// @Failure		400		{object}	httperr.ErrorResponse
// @Router			/users/me/favorites [post]
func (h *Handler) addFavorite(c *gin.Context) {
	var body FavoriteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	u, err := h.svc.AddFavorite(c.Request.Context(), middleware.UserID(c), body.DealerID)
	respond(c, http.StatusOK, u, err)
}

// @Summary		Remove a dealer from favorites
// @Tags			Dealers
// @Security		BearerAuth
// @Param			dealerId	path		string	true	"Dealer ID"
// @Success		200			{object}	domain.User
// @Failure		404			{object}	httperr.ErrorResponse
// @Router			/users/me/favorites/{dealerId} [delete]
func (h *Handler) removeFavorite(c *gin.Context) {
	u, err := h.svc.RemoveFavorite(c.Request.Context(), middleware.UserID(c), c.Param("dealerId"))
	respond(c, http.StatusOK, u, err)
}

// @Summary		Add a motorcycle to the catalogue
// @Tags			Motorcycles
// @Security		BearerAuth
// @Param			body	body		dealer.MotorcycleInput	true	"Motorcycle"
// @Success		201		{object}	domain.Motorcycle
// @Failure		400		{object}	httperr.ErrorResponse
// @Router			/motorcycles [post]
func (h *Handler) createMotorcycle(c *gin.Context) {
	var body dealer.MotorcycleInput
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	m, err := h.svc.CreateMotorcycle(c.Request.Context(), middleware.UserID(c), body)
	respond(c, http.StatusCreated, m, err)
}

// @Summary		Own motorcycles
// @Tags			Motorcycles
// @Security		BearerAuth
// @Success		200	{array}	domain.Motorcycle
// @Router			/motorcycles [get]
func (h *Handler) listMotorcycles(c *gin.Context) {
	list, err := h.svc.ListMotorcycles(c.Request.Context(), middleware.UserID(c))
	respond(c, http.StatusOK, list, err)
}

// @Summary		Motorcycle details
// @Tags			Motorcycles
// @Security		BearerAuth
// @Param			id	path		string	true	"Motorcycle ID"
// @Success		200	{object}	domain.Motorcycle
// @Failure		404	{object}	httperr.ErrorResponse
// @Router			/motorcycles/{id} [get]
func (h *Handler) getMotorcycle(c *gin.Context) {
	m, err := h.svc.GetMotorcycle(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, m, err)
}

// @Summary		Edit descriptive fields of a motorcycle
// @Description	Status follows the motorcycle's auction and cannot be edited.
// @Tags			Motorcycles
// @Security		BearerAuth
// @Param			id		path		string					true	"Motorcycle ID"
// @Param			body	body		dealer.MotorcyclePatch	true	"Fields to change"
// @Success		200		{object}	domain.Motorcycle
// @Failure		403		{object}	httperr.ErrorResponse
// @Failure		409		{object}	httperr.ErrorResponse
// @Router			/motorcycles/{id} [patch]
func (h *Handler) updateMotorcycle(c *gin.Context) {
	var body dealer.MotorcyclePatch
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	m, err := h.svc.UpdateMotorcycle(c.Request.Context(), c.Param("id"), middleware.UserID(c), body)
	respond(c, http.StatusOK, m, err)
}

func respond(c *gin.Context, code int, body any, err error) {
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(code, body)
}
