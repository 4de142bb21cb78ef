package auctionhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"motortrade/internal/http/httperr"
	"motortrade/internal/http/middleware"
	"motortrade/internal/services/auction"
)

type Handler struct {
	svc auction.IAuctionService
}

func New(svc auction.IAuctionService) *Handler { return &Handler{svc: svc} }

// Register mounts the auction and bid routes. optional identifies callers
// when a token is sent, required rejects anonymous ones, bidLimit throttles
// bid submission.
func (h *Handler) Register(r gin.IRouter, optional, required, bidLimit gin.HandlerFunc) {
	r.GET("/auctions", optional, h.list)
	r.GET("/auctions/:id", optional, h.info)

	authed := r.Group("", required)
	authed.POST("/auctions", h.create)
	authed.PATCH("/auctions/:id/end", h.end)
	authed.POST("/auctions/:id/accept-bid", h.acceptBid)
	authed.POST("/auctions/:id/confirm-deal", h.confirmDeal)
	authed.POST("/auctions/:id/schedule-collection", h.scheduleCollection)
	authed.POST("/auctions/:id/confirm-collection", h.confirmCollection)
	authed.POST("/auctions/:id/archive-no-sale", h.archiveNoSale)
	authed.POST("/auctions/:id/reset", h.reset)
	authed.DELETE("/auctions/:id", h.delete)

	authed.POST("/bids", bidLimit, h.bid)
	authed.GET("/bids/auction/:id", h.bids)
}

// @Summary		List auctions
// @Description	Auctions visible to the caller. Anonymous callers only see auctions open to everyone.
// @Tags			Auctions
// @Param			status		query		string	false	"Status filter"	Enums(active,pending_collection,completed,no_sale,all)	default(active)
// @Param			sellerId	query		string	false	"Only auctions of this seller"
// @Success		200			{array}		domain.Auction
// @Failure		400			{object}	httperr.ErrorResponse
// @Router			/auctions [get]
func (h *Handler) list(c *gin.Context) {
	var q ListAuctionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	out, err := h.svc.ListAuctions(c.Request.Context(), middleware.UserID(c), auction.ListQuery{
		Statuses: q.statuses(),
		SellerID: q.SellerID,
	})
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Get auction details
// @Description	Bid count for everyone; highest amount and bid list for the seller only.
// @Tags			Auctions
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	auction.AuctionDetail
// @Failure		404	{object}	httperr.ErrorResponse
// @Router			/auctions/{id} [get]
func (h *Handler) info(c *gin.Context) {
	d, err := h.svc.GetAuction(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary		Create an auction
// @Tags			Auctions
// @Security		BearerAuth
// @Param			body	body		auction.CreateAuctionInput	true	"Auction"
// @Success		201		{object}	domain.Auction
// @Failure		400		{object}	httperr.ErrorResponse
// @Failure		403		{object}	httperr.ErrorResponse
// @Failure		409		{object}	httperr.ErrorResponse
// @Router			/auctions [post]
func (h *Handler) create(c *gin.Context) {
	var body auction.CreateAuctionInput
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	a, err := h.svc.CreateAuction(c.Request.Context(), middleware.UserID(c), body)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary		Place a bid
// @Tags			Bids
// @Security		BearerAuth
// @Param			body	body		PlaceBidBody	true	"Bid payload"
// @Success		201		{object}	domain.Bid
// @Failure		400		{object}	httperr.ErrorResponse
// @Failure		404		{object}	httperr.ErrorResponse
// @Failure		409		{object}	httperr.ErrorResponse
// @Failure		429		{object}	httperr.ErrorResponse
// @Router			/bids [post]
func (h *Handler) bid(c *gin.Context) {
	var body PlaceBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	b, err := h.svc.PlaceBid(c.Request.Context(), body.AuctionID, middleware.UserID(c), body.Amount)
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// @Summary		List bids of an auction
// @Description	Seller only, highest first.
// @Tags			Bids
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{array}		domain.Bid
// @Failure		403	{object}	httperr.ErrorResponse
// @Failure		404	{object}	httperr.ErrorResponse
// @Router			/bids/auction/{id} [get]
func (h *Handler) bids(c *gin.Context) {
	out, err := h.svc.BidsForAuction(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		End an auction early
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	domain.Auction
// @Failure		403	{object}	httperr.ErrorResponse
// @Failure		409	{object}	httperr.ErrorResponse
// @Router			/auctions/{id}/end [patch]
func (h *Handler) end(c *gin.Context) {
	a, err := h.svc.EndEarly(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	respond(c, a, err)
}

// @Summary		Accept a bid
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id		path		string			true	"Auction ID"
// @Param			body	body		AcceptBidBody	true	"Bid to accept"
// @Success		200		{object}	domain.Auction
// @Failure		400		{object}	httperr.ErrorResponse
// @Failure		403		{object}	httperr.ErrorResponse
// @Failure		409		{object}	httperr.ErrorResponse
// @Router			/auctions/{id}/accept-bid [post]
func (h *Handler) acceptBid(c *gin.Context) {
	var body AcceptBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	a, err := h.svc.AcceptBid(c.Request.Context(), c.Param("id"), middleware.UserID(c), body.BidID, body.AvailabilityDate)
	respond(c, a, err)
}

// @Summary		Confirm the deal
// @Description	Winning bidder only.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	domain.Auction
// @Failure		403	{object}	httperr.ErrorResponse
// @Failure		409	{object}	httperr.ErrorResponse
// @Router			/auctions/{id}/confirm-deal [post]
func (h *Handler) confirmDeal(c *gin.Context) {
	a, err := h.svc.ConfirmDeal(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	respond(c, a, err)
}

// @Summary		Schedule collection
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id		path		string					true	"Auction ID"
// @Param			body	body		ScheduleCollectionBody	true	"Collection date"
// @Success		200		{object}	domain.Auction
// @Failure		400		{object}	httperr.ErrorResponse
// @Failure		403		{object}	httperr.ErrorResponse
// @Failure		409		{object}	httperr.ErrorResponse
// @Router			/auctions/{id}/schedule-collection [post]
func (h *Handler) scheduleCollection(c *gin.Context) {
	var body ScheduleCollectionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	a, err := h.svc.ScheduleCollection(c.Request.Context(), c.Param("id"), middleware.UserID(c), body.CollectionDate)
	respond(c, a, err)
}

// @Summary		Confirm collection
// @Description	Winning bidder only. Completes the sale.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	domain.Auction
// @Failure		403	{object}	httperr.ErrorResponse
// @Failure		409	{object}	httperr.ErrorResponse
// @Router			/auctions/{id}/confirm-collection [post]
func (h *Handler) confirmCollection(c *gin.Context) {
	a, err := h.svc.ConfirmCollection(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	respond(c, a, err)
}

// @Summary		Archive without a sale
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	domain.Auction
// @Failure		403	{object}	httperr.ErrorResponse
// @Failure		409	{object}	httperr.ErrorResponse
// @Router			/auctions/{id}/archive-no-sale [post]
func (h *Handler) archiveNoSale(c *gin.Context) {
	a, err := h.svc.ArchiveNoSale(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	respond(c, a, err)
}

// @Summary		Reset an auction
// @Description	Test deployments only. Reopens the auction with a new end time.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id		path		string		true	"Auction ID"
// @Param			body	body		ResetBody	true	"New end time"
// @Success		200		{object}	domain.Auction
// @Failure		403		{object}	httperr.ErrorResponse
// @Failure		409		{object}	httperr.ErrorResponse
// @Router			/auctions/{id}/reset [post]
func (h *Handler) reset(c *gin.Context) {
	var body ResetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.BadRequest(c, err)
		return
	}
	a, err := h.svc.Reset(c.Request.Context(), c.Param("id"), middleware.UserID(c), body.EndTime)
	respond(c, a, err)
}

// @Summary		Delete an auction
// @Description	Only auctions without bids. The motorcycle is deleted with it.
// @Tags			Auctions
// @Security		BearerAuth
// @Param			id	path	string	true	"Auction ID"
// @Success		204
// @Failure		403	{object}	httperr.ErrorResponse
// @Failure		409	{object}	httperr.ErrorResponse
// @Router			/auctions/{id} [delete]
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.DeleteAuction(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		httperr.Write(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respond(c *gin.Context, body any, err error) {
	if err != nil {
		httperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}
