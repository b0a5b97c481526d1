package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

type memberRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
}

func (h *Handler) createMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	member, err := h.members.CreateMember(req.Name, req.Email, req.Phone, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, member, "Member registered successfully")
}

func (h *Handler) getMember(c *gin.Context) {
	id, ok := parseIDParam(c, "member")
	if !ok {
		return
	}

	member, err := h.members.GetMember(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, member, "Member retrieved successfully")
}

func (h *Handler) listMembers(c *gin.Context) {
	members, err := h.members.ListMembers()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, members, "Members retrieved successfully")
}

func (h *Handler) updateMember(c *gin.Context) {
	id, ok := parseIDParam(c, "member")
	if !ok {
		return
	}

	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	member, err := h.members.UpdateMember(id, req.Name, req.Email, req.Phone, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, member, "Member updated successfully")
}

func (h *Handler) deleteMember(c *gin.Context) {
	id, ok := parseIDParam(c, "member")
	if !ok {
		return
	}

	if err := h.members.DeleteMember(id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil, "Member deleted successfully")
}

func (h *Handler) memberBorrowingHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "member")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	history, err := h.members.BorrowingHistory(id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, history, "Borrowing history retrieved successfully")
}
