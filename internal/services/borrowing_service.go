package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library/internal/models"
	"library/internal/repositories"
)

// ─── Lending Policy Constants ─────────────────────────────────────────────────

const (
	// MaxActiveBorrowings is the maximum number of books a member may have
	// out at the same time.
	MaxActiveBorrowings = 3

	// OverdueThresholdDays is the number of days after which an active
	// borrowing appears in the overdue report. Reporting only, not enforced.
	OverdueThresholdDays = 30
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBorrowingNotFound is returned when the referenced borrowing record does not exist.
	ErrBorrowingNotFound = errors.New("borrowing record not found")

	// ErrOutOfStock is returned when a borrow is attempted on a book with no
	// available copies.
	ErrOutOfStock = errors.New("book is not available for borrowing (out of stock)")

	// ErrBorrowLimitExceeded is returned when the member already has
	// MaxActiveBorrowings books out.
	ErrBorrowLimitExceeded = errors.New("member has reached the maximum borrowing limit")

	// ErrDuplicateBorrow is returned when the member already has an active
	// borrowing for the same book.
	ErrDuplicateBorrow = errors.New("member already has this book borrowed")

	// ErrAlreadyReturned is returned when a return is attempted on a borrowing
	// that has already been returned.
	ErrAlreadyReturned = errors.New("book already returned")
)

// ─── Transaction Runner ───────────────────────────────────────────────────────

// TxRunner runs a function inside a database transaction, rolling back every
// effect when the function returns an error. *gorm.DB satisfies it directly;
// tests substitute an in-memory implementation.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// ─── Service Interface ────────────────────────────────────────────────────────

// BorrowingService implements the borrow/return workflow and the read-only
// borrowing reports.
type BorrowingService interface {
	Borrow(bookID, memberID uuid.UUID, borrowDate *time.Time) (*models.Borrowing, error)
	Return(borrowingID uuid.UUID) (*models.Borrowing, error)

	ListBorrowings() ([]models.Borrowing, error)
	GetBorrowing(id uuid.UUID) (*models.Borrowing, error)
	ListOverdue() ([]models.OverdueBorrowing, error)
	MemberActiveBorrowings(memberID uuid.UUID) ([]models.Borrowing, error)
	Stats() (*models.BorrowingStats, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type borrowingService struct {
	db            TxRunner
	bookRepo      repositories.BookRepository
	memberRepo    repositories.MemberRepository
	borrowingRepo repositories.BorrowingRepository
}

// NewBorrowingService wires up all dependencies and returns a BorrowingService.
func NewBorrowingService(
	db TxRunner,
	bookRepo repositories.BookRepository,
	memberRepo repositories.MemberRepository,
	borrowingRepo repositories.BorrowingRepository,
) BorrowingService {
	return &borrowingService{
		db:            db,
		bookRepo:      bookRepo,
		memberRepo:    memberRepo,
		borrowingRepo: borrowingRepo,
	}
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// Borrow implements the transactional borrow flow.
//
// All checks and both writes run in one transaction. The book and member rows
// are locked (SELECT … FOR UPDATE) before any check, so concurrent borrows of
// the same book or by the same member serialize: the stock check, the active
// count and the duplicate check are all evaluated against a stable snapshot.
//
// Precondition order and error kinds:
//  1. book exists        → ErrBookNotFound
//  2. stock > 0          → ErrOutOfStock
//  3. member exists      → ErrMemberNotFound
//  4. active count < max → ErrBorrowLimitExceeded
//  5. no active (book, member) borrowing → ErrDuplicateBorrow
//
// borrowDate, when nil, defaults to the current UTC calendar date.
func (s *borrowingService) Borrow(bookID, memberID uuid.UUID, borrowDate *time.Time) (*models.Borrowing, error) {
	var result *models.Borrowing

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. Lock the book row and validate it exists.
		book, err := s.bookRepo.GetByIDForUpdate(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
			}
			return err
		}

		// 2. Stock check. The decrement below re-checks atomically.
		if book.Stock < 1 {
			return fmt.Errorf("%w: %s", ErrOutOfStock, bookID)
		}

		// 3. Lock the member row so the limit and duplicate checks cannot race
		// with a concurrent borrow by the same member.
		if _, err := s.memberRepo.GetByIDForUpdate(tx, memberID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
			}
			return err
		}

		// 4. Borrowing-limit check.
		active, err := s.borrowingRepo.CountActiveByMember(tx, memberID)
		if err != nil {
			return err
		}
		if active >= MaxActiveBorrowings {
			return fmt.Errorf("%w (%d books)", ErrBorrowLimitExceeded, MaxActiveBorrowings)
		}

		// 5. Duplicate check: same book, same member, still out.
		existing, err := s.borrowingRepo.FindActiveByBookAndMember(tx, bookID, memberID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			log.Printf("[WARN] Borrow: member %s already has active borrowing %s for book %s", memberID, existing.ID, bookID)
			return fmt.Errorf("%w: %s", ErrDuplicateBorrow, bookID)
		}

		// 6. Decrement stock. The conditional update is the backstop against
		// the check-then-act race; zero rows means the copy is gone.
		rows, err := s.bookRepo.AdjustStock(tx, bookID, -1)
		if err != nil {
			log.Printf("[ERROR] Borrow: failed to decrement stock for book %s: %v", bookID, err)
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", ErrOutOfStock, bookID)
		}

		// 7. Create the borrowing record.
		date := todayUTC()
		if borrowDate != nil {
			date = dateOnly(*borrowDate)
		}
		borrowing := &models.Borrowing{
			BookID:     bookID,
			MemberID:   memberID,
			BorrowDate: date,
			Status:     models.BorrowingStatusBorrowed,
		}
		if err := s.borrowingRepo.Create(tx, borrowing); err != nil {
			log.Printf("[ERROR] Borrow: failed to create borrowing record: %v", err)
			return err
		}

		// Reload with book/member display data.
		created, err := s.borrowingRepo.GetByID(tx, borrowing.ID)
		if err != nil {
			return err
		}
		result = created
		return nil
	})

	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Borrow: borrowing created (id=%s) for member %s / book %s", result.ID, memberID, bookID)
	return result, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// Return implements the transactional return flow.
//
// Steps (all in one transaction):
//  1. Lock the borrowing row (FOR UPDATE).
//  2. Guard against double-return.
//  3. Increment the book's stock.
//  4. Mark the borrowing RETURNED with today's date.
func (s *borrowingService) Return(borrowingID uuid.UUID) (*models.Borrowing, error) {
	var result *models.Borrowing

	err := s.db.Transaction(func(tx *gorm.DB) error {
		borrowing, err := s.borrowingRepo.GetByIDForUpdate(tx, borrowingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrBorrowingNotFound, borrowingID)
			}
			return err
		}

		if borrowing.Status == models.BorrowingStatusReturned {
			log.Printf("[WARN] Return: borrowing %s already returned on %s", borrowingID, borrowing.ReturnDate)
			return fmt.Errorf("%w: %s", ErrAlreadyReturned, borrowingID)
		}

		rows, err := s.bookRepo.AdjustStock(tx, borrowing.BookID, 1)
		if err != nil {
			log.Printf("[ERROR] Return: failed to increment stock for book %s: %v", borrowing.BookID, err)
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", ErrBookNotFound, borrowing.BookID)
		}

		rows, err = s.borrowingRepo.MarkReturned(tx, borrowingID, todayUTC())
		if err != nil {
			log.Printf("[ERROR] Return: failed to mark borrowing %s as returned: %v", borrowingID, err)
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyReturned, borrowingID)
		}

		updated, err := s.borrowingRepo.GetByID(tx, borrowingID)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})

	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Return: borrowing %s returned, stock restored for book %s", borrowingID, result.BookID)
	return result, nil
}

// ─── Reports ──────────────────────────────────────────────────────────────────

// ListBorrowings returns all borrowing records, newest first.
func (s *borrowingService) ListBorrowings() ([]models.Borrowing, error) {
	return s.borrowingRepo.List(nil)
}

// GetBorrowing returns a single borrowing with its book and member data.
func (s *borrowingService) GetBorrowing(id uuid.UUID) (*models.Borrowing, error) {
	borrowing, err := s.borrowingRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBorrowingNotFound, id)
		}
		return nil, err
	}
	return borrowing, nil
}

// ListOverdue returns active borrowings older than OverdueThresholdDays,
// each annotated with the number of days the book has been out.
func (s *borrowingService) ListOverdue() ([]models.OverdueBorrowing, error) {
	now := todayUTC()
	cutoff := now.AddDate(0, 0, -OverdueThresholdDays)

	borrowings, err := s.borrowingRepo.ListOverdue(nil, cutoff)
	if err != nil {
		return nil, err
	}

	overdue := make([]models.OverdueBorrowing, 0, len(borrowings))
	for _, b := range borrowings {
		overdue = append(overdue, models.OverdueBorrowing{
			Borrowing:    b,
			DaysBorrowed: int(now.Sub(dateOnly(b.BorrowDate)).Hours() / 24),
		})
	}
	return overdue, nil
}

// MemberActiveBorrowings returns the member's currently-active borrowings.
func (s *borrowingService) MemberActiveBorrowings(memberID uuid.UUID) ([]models.Borrowing, error) {
	if _, err := s.memberRepo.GetByID(nil, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
		}
		return nil, err
	}
	return s.borrowingRepo.ListActiveByMember(nil, memberID)
}

// Stats returns aggregate borrowing counts.
func (s *borrowingService) Stats() (*models.BorrowingStats, error) {
	total, err := s.borrowingRepo.CountAll(nil)
	if err != nil {
		return nil, err
	}
	active, err := s.borrowingRepo.CountByStatus(nil, models.BorrowingStatusBorrowed)
	if err != nil {
		return nil, err
	}
	cutoff := todayUTC().AddDate(0, 0, -OverdueThresholdDays)
	overdue, err := s.borrowingRepo.CountOverdue(nil, cutoff)
	if err != nil {
		return nil, err
	}
	returned, err := s.borrowingRepo.CountByStatus(nil, models.BorrowingStatusReturned)
	if err != nil {
		return nil, err
	}

	return &models.BorrowingStats{
		Total:    total,
		Active:   active,
		Overdue:  overdue,
		Returned: returned,
	}, nil
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// todayUTC returns the current UTC calendar date with no time component.
func todayUTC() time.Time {
	return dateOnly(time.Now().UTC())
}

// dateOnly truncates a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
