package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

type bookRequest struct {
	Title         string `json:"title" binding:"required"`
	Author        string `json:"author" binding:"required"`
	PublishedYear int    `json:"published_year" binding:"required"`
	Stock         int    `json:"stock" binding:"min=0"`
	ISBN          string `json:"isbn" binding:"required"`
}

func (h *Handler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	book, err := h.books.CreateBook(req.Title, req.Author, req.PublishedYear, req.Stock, req.ISBN)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, book, "Book created successfully")
}

func (h *Handler) getBook(c *gin.Context) {
	id, ok := parseIDParam(c, "book")
	if !ok {
		return
	}

	book, err := h.books.GetBook(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, book, "Book retrieved successfully")
}

func (h *Handler) listBooks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.books.ListBooks(c.Query("title"), c.Query("author"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result, "Books retrieved successfully")
}

func (h *Handler) listAvailableBooks(c *gin.Context) {
	books, err := h.books.ListAvailableBooks()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, books, "Available books retrieved successfully")
}

func (h *Handler) updateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "book")
	if !ok {
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	book, err := h.books.UpdateBook(id, req.Title, req.Author, req.PublishedYear, req.Stock, req.ISBN)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, book, "Book updated successfully")
}

func (h *Handler) deleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "book")
	if !ok {
		return
	}

	if err := h.books.DeleteBook(id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil, "Book deleted successfully")
}
