package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library/internal/models"
)

var errStorage = errors.New("storage failure")

// fakeStore is an in-memory stand-in for the database shared by the fake
// repositories. fakeTx serializes transactions with the mutex and rolls the
// store back to a snapshot when the transaction function fails, mirroring the
// real rollback semantics.
type fakeStore struct {
	mu         sync.Mutex
	books      map[uuid.UUID]*models.Book
	members    map[uuid.UUID]*models.Member
	borrowings map[uuid.UUID]*models.Borrowing

	failAdjustStock     bool
	failCreateBorrowing bool
	failMarkReturned    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:      make(map[uuid.UUID]*models.Book),
		members:    make(map[uuid.UUID]*models.Member),
		borrowings: make(map[uuid.UUID]*models.Borrowing),
	}
}

var isbnSeq int32

func nextISBN() string {
	n := atomic.AddInt32(&isbnSeq, 1)
	return fmt.Sprintf("978000000%04d", n)
}

func (s *fakeStore) addBook(title string, stock int) uuid.UUID {
	id := uuid.New()
	s.books[id] = &models.Book{
		ID:            id,
		Title:         title,
		Author:        "Test Author",
		PublishedYear: 2000,
		Stock:         stock,
		ISBN:          nextISBN(),
	}
	return id
}

func (s *fakeStore) addMember(name, email string) uuid.UUID {
	id := uuid.New()
	s.members[id] = &models.Member{
		ID:      id,
		Name:    name,
		Email:   email,
		Phone:   "+6281234567890",
		Address: "Test Street 1",
	}
	return id
}

func (s *fakeStore) addBorrowing(bookID, memberID uuid.UUID, status models.BorrowingStatus, borrowDate time.Time) uuid.UUID {
	id := uuid.New()
	s.borrowings[id] = &models.Borrowing{
		ID:         id,
		BookID:     bookID,
		MemberID:   memberID,
		BorrowDate: borrowDate,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	return id
}

type storeSnapshot struct {
	books      map[uuid.UUID]*models.Book
	members    map[uuid.UUID]*models.Member
	borrowings map[uuid.UUID]*models.Borrowing
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		books:      make(map[uuid.UUID]*models.Book, len(s.books)),
		members:    make(map[uuid.UUID]*models.Member, len(s.members)),
		borrowings: make(map[uuid.UUID]*models.Borrowing, len(s.borrowings)),
	}
	for id, b := range s.books {
		copied := *b
		snap.books[id] = &copied
	}
	for id, m := range s.members {
		copied := *m
		snap.members[id] = &copied
	}
	for id, b := range s.borrowings {
		copied := *b
		if b.ReturnDate != nil {
			rd := *b.ReturnDate
			copied.ReturnDate = &rd
		}
		snap.borrowings[id] = &copied
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.books = snap.books
	s.members = snap.members
	s.borrowings = snap.borrowings
}

// fakeTx implements TxRunner over the fake store.
type fakeTx struct {
	store *fakeStore
}

func (f *fakeTx) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	snap := f.store.snapshot()
	if err := fc(nil); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

// ─── Book repository fake ─────────────────────────────────────────────────────

type fakeBookRepo struct {
	store *fakeStore
}

func (r *fakeBookRepo) Create(_ *gorm.DB, book *models.Book) error {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	book.CreatedAt = time.Now().UTC()
	book.UpdatedAt = book.CreatedAt
	copied := *book
	r.store.books[book.ID] = &copied
	return nil
}

func (r *fakeBookRepo) List(_ *gorm.DB, title, author string, offset, limit int) ([]models.Book, int64, error) {
	var matched []models.Book
	for _, b := range r.store.books {
		if title != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(title)) {
			continue
		}
		if author != "" && !strings.Contains(strings.ToLower(b.Author), strings.ToLower(author)) {
			continue
		}
		matched = append(matched, *b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *fakeBookRepo) ListAvailable(_ *gorm.DB) ([]models.Book, error) {
	var books []models.Book
	for _, b := range r.store.books {
		if b.Stock > 0 {
			books = append(books, *b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func (r *fakeBookRepo) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Book, error) {
	b, ok := r.store.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBookRepo) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	return r.GetByID(db, id)
}

func (r *fakeBookRepo) GetByISBN(_ *gorm.DB, isbn string) (*models.Book, error) {
	for _, b := range r.store.books {
		if b.ISBN == isbn {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBookRepo) Update(_ *gorm.DB, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()
	copied := *book
	r.store.books[book.ID] = &copied
	return nil
}

func (r *fakeBookRepo) Delete(_ *gorm.DB, id uuid.UUID) error {
	delete(r.store.books, id)
	return nil
}

func (r *fakeBookRepo) AdjustStock(_ *gorm.DB, bookID uuid.UUID, delta int) (int64, error) {
	if r.store.failAdjustStock {
		return 0, errStorage
	}
	b, ok := r.store.books[bookID]
	if !ok {
		return 0, nil
	}
	if b.Stock+delta < 0 {
		return 0, nil
	}
	b.Stock += delta
	b.UpdatedAt = time.Now().UTC()
	return 1, nil
}

// ─── Member repository fake ───────────────────────────────────────────────────

type fakeMemberRepo struct {
	store *fakeStore
}

func (r *fakeMemberRepo) Create(_ *gorm.DB, member *models.Member) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	member.CreatedAt = time.Now().UTC()
	member.UpdatedAt = member.CreatedAt
	copied := *member
	r.store.members[member.ID] = &copied
	return nil
}

func (r *fakeMemberRepo) List(_ *gorm.DB) ([]models.Member, error) {
	var members []models.Member
	for _, m := range r.store.members {
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

func (r *fakeMemberRepo) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Member, error) {
	m, ok := r.store.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMemberRepo) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Member, error) {
	return r.GetByID(db, id)
}

func (r *fakeMemberRepo) GetByEmail(_ *gorm.DB, email string) (*models.Member, error) {
	for _, m := range r.store.members {
		if m.Email == email {
			copied := *m
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMemberRepo) Update(_ *gorm.DB, member *models.Member) error {
	member.UpdatedAt = time.Now().UTC()
	copied := *member
	r.store.members[member.ID] = &copied
	return nil
}

func (r *fakeMemberRepo) Delete(_ *gorm.DB, id uuid.UUID) error {
	delete(r.store.members, id)
	return nil
}

// ─── Borrowing repository fake ────────────────────────────────────────────────

type fakeBorrowingRepo struct {
	store *fakeStore
}

func (r *fakeBorrowingRepo) Create(_ *gorm.DB, borrowing *models.Borrowing) error {
	if r.store.failCreateBorrowing {
		return errStorage
	}
	if borrowing.ID == uuid.Nil {
		borrowing.ID = uuid.New()
	}
	borrowing.CreatedAt = time.Now().UTC()
	borrowing.UpdatedAt = borrowing.CreatedAt
	copied := *borrowing
	copied.Book = models.Book{}
	copied.Member = models.Member{}
	r.store.borrowings[borrowing.ID] = &copied
	return nil
}

func (r *fakeBorrowingRepo) preload(b models.Borrowing) models.Borrowing {
	if book, ok := r.store.books[b.BookID]; ok {
		b.Book = *book
	}
	if member, ok := r.store.members[b.MemberID]; ok {
		b.Member = *member
	}
	return b
}

func (r *fakeBorrowingRepo) GetByID(_ *gorm.DB, id uuid.UUID) (*models.Borrowing, error) {
	b, ok := r.store.borrowings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := r.preload(*b)
	if b.ReturnDate != nil {
		rd := *b.ReturnDate
		copied.ReturnDate = &rd
	}
	return &copied, nil
}

func (r *fakeBorrowingRepo) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error) {
	return r.GetByID(db, id)
}

func (r *fakeBorrowingRepo) List(_ *gorm.DB) ([]models.Borrowing, error) {
	var borrowings []models.Borrowing
	for _, b := range r.store.borrowings {
		borrowings = append(borrowings, r.preload(*b))
	}
	sort.Slice(borrowings, func(i, j int) bool { return borrowings[i].CreatedAt.After(borrowings[j].CreatedAt) })
	return borrowings, nil
}

func (r *fakeBorrowingRepo) ListByMember(_ *gorm.DB, memberID uuid.UUID, offset, limit int) ([]models.Borrowing, int64, error) {
	var matched []models.Borrowing
	for _, b := range r.store.borrowings {
		if b.MemberID == memberID {
			matched = append(matched, r.preload(*b))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *fakeBorrowingRepo) ListActiveByMember(_ *gorm.DB, memberID uuid.UUID) ([]models.Borrowing, error) {
	var matched []models.Borrowing
	for _, b := range r.store.borrowings {
		if b.MemberID == memberID && b.Status == models.BorrowingStatusBorrowed {
			matched = append(matched, r.preload(*b))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].BorrowDate.Before(matched[j].BorrowDate) })
	return matched, nil
}

func (r *fakeBorrowingRepo) CountActiveByMember(_ *gorm.DB, memberID uuid.UUID) (int64, error) {
	var count int64
	for _, b := range r.store.borrowings {
		if b.MemberID == memberID && b.Status == models.BorrowingStatusBorrowed {
			count++
		}
	}
	return count, nil
}

func (r *fakeBorrowingRepo) FindActiveByBookAndMember(_ *gorm.DB, bookID, memberID uuid.UUID) (*models.Borrowing, error) {
	for _, b := range r.store.borrowings {
		if b.BookID == bookID && b.MemberID == memberID && b.Status == models.BorrowingStatusBorrowed {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBorrowingRepo) MarkReturned(_ *gorm.DB, id uuid.UUID, returnDate time.Time) (int64, error) {
	if r.store.failMarkReturned {
		return 0, errStorage
	}
	b, ok := r.store.borrowings[id]
	if !ok || b.Status != models.BorrowingStatusBorrowed {
		return 0, nil
	}
	rd := returnDate
	b.ReturnDate = &rd
	b.Status = models.BorrowingStatusReturned
	b.UpdatedAt = time.Now().UTC()
	return 1, nil
}

func (r *fakeBorrowingRepo) ListOverdue(_ *gorm.DB, cutoff time.Time) ([]models.Borrowing, error) {
	var matched []models.Borrowing
	for _, b := range r.store.borrowings {
		if b.Status == models.BorrowingStatusBorrowed && b.BorrowDate.Before(cutoff) {
			matched = append(matched, r.preload(*b))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].BorrowDate.Before(matched[j].BorrowDate) })
	return matched, nil
}

func (r *fakeBorrowingRepo) CountAll(_ *gorm.DB) (int64, error) {
	return int64(len(r.store.borrowings)), nil
}

func (r *fakeBorrowingRepo) CountByStatus(_ *gorm.DB, status models.BorrowingStatus) (int64, error) {
	var count int64
	for _, b := range r.store.borrowings {
		if b.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeBorrowingRepo) CountOverdue(_ *gorm.DB, cutoff time.Time) (int64, error) {
	var count int64
	for _, b := range r.store.borrowings {
		if b.Status == models.BorrowingStatusBorrowed && b.BorrowDate.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

// ─── Wiring helpers ───────────────────────────────────────────────────────────

func newBorrowingTestService(store *fakeStore) BorrowingService {
	return NewBorrowingService(
		&fakeTx{store: store},
		&fakeBookRepo{store: store},
		&fakeMemberRepo{store: store},
		&fakeBorrowingRepo{store: store},
	)
}

func newBookTestService(store *fakeStore) BookService {
	return NewBookService(&fakeBookRepo{store: store})
}

func newMemberTestService(store *fakeStore) MemberService {
	return NewMemberService(&fakeMemberRepo{store: store}, &fakeBorrowingRepo{store: store})
}
