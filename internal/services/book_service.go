package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library/internal/models"
	"library/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrISBNExists is returned when creating or updating a book with an ISBN
	// already registered to another book.
	ErrISBNExists = errors.New("book with this ISBN already exists")

	// ErrInvalidISBN is returned when the ISBN is not 10 or 13 characters.
	ErrInvalidISBN = errors.New("ISBN must be 10 or 13 characters")

	// ErrNegativeStock is returned when a book is created or updated with a
	// negative stock count.
	ErrNegativeStock = errors.New("stock must not be negative")
)

// ─── Pagination ───────────────────────────────────────────────────────────────

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Pagination describes the page window of a list response.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func paginate(total int64, page, limit int) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return page, limit
}

// BookPage is a paginated book listing.
type BookPage struct {
	Books      []models.Book `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// ─── Service Interface ────────────────────────────────────────────────────────

// BookService implements catalogue management for books.
type BookService interface {
	CreateBook(title, author string, publishedYear, stock int, isbn string) (*models.Book, error)
	GetBook(id uuid.UUID) (*models.Book, error)
	ListBooks(title, author string, page, limit int) (*BookPage, error)
	ListAvailableBooks() ([]models.Book, error)
	UpdateBook(id uuid.UUID, title, author string, publishedYear, stock int, isbn string) (*models.Book, error)
	DeleteBook(id uuid.UUID) error
}

// ─── Implementation ───────────────────────────────────────────────────────────

type bookService struct {
	bookRepo repositories.BookRepository
}

// NewBookService returns a BookService backed by the given repository.
func NewBookService(bookRepo repositories.BookRepository) BookService {
	return &bookService{bookRepo: bookRepo}
}

// CreateBook registers a new title. ISBN must be 10 or 13 characters and unique.
func (s *bookService) CreateBook(title, author string, publishedYear, stock int, isbn string) (*models.Book, error) {
	if len(isbn) != 10 && len(isbn) != 13 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidISBN, isbn)
	}
	if stock < 0 {
		return nil, ErrNegativeStock
	}

	if existing, err := s.bookRepo.GetByISBN(nil, isbn); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrISBNExists, isbn)
	}

	book := &models.Book{
		Title:         title,
		Author:        author,
		PublishedYear: publishedYear,
		Stock:         stock,
		ISBN:          isbn,
	}
	if err := s.bookRepo.Create(nil, book); err != nil {
		log.Printf("[ERROR] CreateBook: failed to create book record: %v", err)
		return nil, err
	}
	book.Available = book.Stock > 0
	log.Printf("[INFO] CreateBook: created book %q (id=%s) with stock %d", book.Title, book.ID, stock)
	return book, nil
}

// GetBook returns a single book by id.
func (s *bookService) GetBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
		}
		return nil, err
	}
	book.Available = book.Stock > 0
	return book, nil
}

// ListBooks returns a page of the catalogue, optionally filtered by title and
// author substring.
func (s *bookService) ListBooks(title, author string, page, limit int) (*BookPage, error) {
	page, limit = normalizePage(page, limit)

	books, total, err := s.bookRepo.List(nil, title, author, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].Available = books[i].Stock > 0
	}
	return &BookPage{Books: books, Pagination: paginate(total, page, limit)}, nil
}

// ListAvailableBooks returns every book with at least one copy in stock.
func (s *bookService) ListAvailableBooks() ([]models.Book, error) {
	books, err := s.bookRepo.ListAvailable(nil)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].Available = true
	}
	return books, nil
}

// UpdateBook replaces a book's catalogue data. Changing the ISBN re-checks
// uniqueness against the rest of the catalogue.
func (s *bookService) UpdateBook(id uuid.UUID, title, author string, publishedYear, stock int, isbn string) (*models.Book, error) {
	if len(isbn) != 10 && len(isbn) != 13 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidISBN, isbn)
	}
	if stock < 0 {
		return nil, ErrNegativeStock
	}

	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
		}
		return nil, err
	}

	if isbn != book.ISBN {
		if existing, err := s.bookRepo.GetByISBN(nil, isbn); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		} else if existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrISBNExists, isbn)
		}
	}

	book.Title = title
	book.Author = author
	book.PublishedYear = publishedYear
	book.Stock = stock
	book.ISBN = isbn
	if err := s.bookRepo.Update(nil, book); err != nil {
		log.Printf("[ERROR] UpdateBook: failed to update book %s: %v", id, err)
		return nil, err
	}
	book.Available = book.Stock > 0
	return book, nil
}

// DeleteBook removes a book from the catalogue.
func (s *bookService) DeleteBook(id uuid.UUID) error {
	if _, err := s.bookRepo.GetByID(nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrBookNotFound, id)
		}
		return err
	}
	if err := s.bookRepo.Delete(nil, id); err != nil {
		log.Printf("[ERROR] DeleteBook: failed to delete book %s: %v", id, err)
		return err
	}
	log.Printf("[INFO] DeleteBook: deleted book %s", id)
	return nil
}
