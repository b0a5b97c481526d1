package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library/internal/services"
)

type Handler struct {
	books      services.BookService
	members    services.MemberService
	borrowings services.BorrowingService
}

func RegisterRoutes(r *gin.Engine, books services.BookService, members services.MemberService, borrowings services.BorrowingService) {
	h := &Handler{books: books, members: members, borrowings: borrowings}

	r.GET("/health", h.health)

	api := r.Group("/api")

	bookRoutes := api.Group("/books")
	bookRoutes.GET("", h.listBooks)
	bookRoutes.GET("/available", h.listAvailableBooks)
	bookRoutes.GET("/:id", h.getBook)
	bookRoutes.POST("", h.createBook)
	bookRoutes.PUT("/:id", h.updateBook)
	bookRoutes.DELETE("/:id", h.deleteBook)

	memberRoutes := api.Group("/members")
	memberRoutes.GET("", h.listMembers)
	memberRoutes.GET("/:id", h.getMember)
	memberRoutes.GET("/:id/borrowings", h.memberBorrowingHistory)
	memberRoutes.GET("/:id/borrowings/active", h.memberActiveBorrowings)
	memberRoutes.POST("", h.createMember)
	memberRoutes.PUT("/:id", h.updateMember)
	memberRoutes.DELETE("/:id", h.deleteMember)

	borrowingRoutes := api.Group("/borrowings")
	borrowingRoutes.GET("", h.listBorrowings)
	borrowingRoutes.GET("/overdue", h.listOverdueBorrowings)
	borrowingRoutes.GET("/stats", h.borrowingStats)
	borrowingRoutes.GET("/:id", h.getBorrowing)
	borrowingRoutes.POST("", h.borrowBook)
	borrowingRoutes.PUT("/:id/return", h.returnBook)
}

// ─── Response Envelope ────────────────────────────────────────────────────────

func respondOK(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "message": message})
}

func respondCreated(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data, "message": message})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// respondError maps service errors to transport status codes: missing entities
// become 404, lending-rule and validation violations 400, everything else 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrBorrowingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrBorrowLimitExceeded),
		errors.Is(err, services.ErrDuplicateBorrow),
		errors.Is(err, services.ErrAlreadyReturned),
		errors.Is(err, services.ErrISBNExists),
		errors.Is(err, services.ErrInvalidISBN),
		errors.Is(err, services.ErrNegativeStock),
		errors.Is(err, services.ErrEmailExists),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid "+name+" id")
		return uuid.Nil, false
	}
	return id, true
}

// ─── Health ───────────────────────────────────────────────────────────────────

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Library Management API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ─── Borrowings ───────────────────────────────────────────────────────────────

type borrowRequest struct {
	BookID     string `json:"book_id" binding:"required,uuid"`
	MemberID   string `json:"member_id" binding:"required,uuid"`
	BorrowDate string `json:"borrow_date"`
}

func (h *Handler) borrowBook(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	bookID, _ := uuid.Parse(req.BookID)
	memberID, _ := uuid.Parse(req.MemberID)

	var borrowDate *time.Time
	if req.BorrowDate != "" {
		parsed, err := time.Parse("2006-01-02", req.BorrowDate)
		if err != nil {
			respondBadRequest(c, "invalid borrow_date, expected YYYY-MM-DD")
			return
		}
		borrowDate = &parsed
	}

	borrowing, err := h.borrowings.Borrow(bookID, memberID, borrowDate)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, borrowing, "Book borrowed successfully")
}

func (h *Handler) returnBook(c *gin.Context) {
	id, ok := parseIDParam(c, "borrowing")
	if !ok {
		return
	}

	borrowing, err := h.borrowings.Return(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, borrowing, "Book returned successfully")
}

func (h *Handler) listBorrowings(c *gin.Context) {
	borrowings, err := h.borrowings.ListBorrowings()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, borrowings, "Borrowings retrieved successfully")
}

func (h *Handler) getBorrowing(c *gin.Context) {
	id, ok := parseIDParam(c, "borrowing")
	if !ok {
		return
	}

	borrowing, err := h.borrowings.GetBorrowing(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, borrowing, "Borrowing record retrieved successfully")
}

func (h *Handler) listOverdueBorrowings(c *gin.Context) {
	overdue, err := h.borrowings.ListOverdue()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, overdue, "Overdue borrowings retrieved successfully")
}

func (h *Handler) memberActiveBorrowings(c *gin.Context) {
	id, ok := parseIDParam(c, "member")
	if !ok {
		return
	}

	active, err := h.borrowings.MemberActiveBorrowings(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, active, "Active borrowings retrieved successfully")
}

func (h *Handler) borrowingStats(c *gin.Context) {
	stats, err := h.borrowings.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats, "Borrowing statistics retrieved successfully")
}
