package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"library/internal/models"
)

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB, title, author string, offset, limit int) ([]models.Book, int64, error)
	ListAvailable(db *gorm.DB) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByISBN(db *gorm.DB, isbn string) (*models.Book, error)
	Update(db *gorm.DB, book *models.Book) error
	Delete(db *gorm.DB, id uuid.UUID) error
	AdjustStock(db *gorm.DB, bookID uuid.UUID, delta int) (int64, error)
}

type MemberRepository interface {
	Create(db *gorm.DB, member *models.Member) error
	List(db *gorm.DB) ([]models.Member, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Member, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Member, error)
	GetByEmail(db *gorm.DB, email string) (*models.Member, error)
	Update(db *gorm.DB, member *models.Member) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type BorrowingRepository interface {
	Create(db *gorm.DB, borrowing *models.Borrowing) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error)
	List(db *gorm.DB) ([]models.Borrowing, error)
	ListByMember(db *gorm.DB, memberID uuid.UUID, offset, limit int) ([]models.Borrowing, int64, error)
	ListActiveByMember(db *gorm.DB, memberID uuid.UUID) ([]models.Borrowing, error)
	CountActiveByMember(db *gorm.DB, memberID uuid.UUID) (int64, error)
	FindActiveByBookAndMember(db *gorm.DB, bookID, memberID uuid.UUID) (*models.Borrowing, error)
	MarkReturned(db *gorm.DB, id uuid.UUID, returnDate time.Time) (int64, error)
	ListOverdue(db *gorm.DB, cutoff time.Time) ([]models.Borrowing, error)
	CountAll(db *gorm.DB) (int64, error)
	CountByStatus(db *gorm.DB, status models.BorrowingStatus) (int64, error)
	CountOverdue(db *gorm.DB, cutoff time.Time) (int64, error)
}

// concrete implementations

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) List(db *gorm.DB, title, author string, offset, limit int) ([]models.Book, int64, error) {
	if db == nil {
		db = r.db
	}
	query := db.Model(&models.Book{})
	if title != "" {
		query = query.Where("title ILIKE ?", "%"+title+"%")
	}
	if author != "" {
		query = query.Where("author ILIKE ?", "%"+author+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []models.Book
	if err := query.Order("title").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *bookRepository) ListAvailable(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Where("stock > 0").Order("title").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByISBN(db *gorm.DB, isbn string) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Update(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Save(book).Error
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

// AdjustStock applies a stock delta with a guard that refuses to drive the
// counter negative. Zero rows affected means either the book is missing or the
// decrement would underflow; callers distinguish via a prior existence check.
func (r *bookRepository) AdjustStock(db *gorm.DB, bookID uuid.UUID, delta int) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND stock + ? >= 0", bookID, delta).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(db *gorm.DB, member *models.Member) error {
	if db == nil {
		db = r.db
	}
	return db.Create(member).Error
}

func (r *memberRepository) List(db *gorm.DB) ([]models.Member, error) {
	if db == nil {
		db = r.db
	}
	var members []models.Member
	if err := db.Order("name").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Member, error) {
	if db == nil {
		db = r.db
	}
	var member models.Member
	if err := db.First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Member, error) {
	if db == nil {
		db = r.db
	}
	var member models.Member
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&member, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) GetByEmail(db *gorm.DB, email string) (*models.Member, error) {
	if db == nil {
		db = r.db
	}
	var member models.Member
	if err := db.First(&member, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) Update(db *gorm.DB, member *models.Member) error {
	if db == nil {
		db = r.db
	}
	return db.Save(member).Error
}

func (r *memberRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Member{}, "id = ?", id).Error
}

type borrowingRepository struct {
	db *gorm.DB
}

func NewBorrowingRepository(db *gorm.DB) BorrowingRepository {
	return &borrowingRepository{db: db}
}

func (r *borrowingRepository) Create(db *gorm.DB, borrowing *models.Borrowing) error {
	if db == nil {
		db = r.db
	}
	return db.Create(borrowing).Error
}

func (r *borrowingRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowing models.Borrowing
	err := db.
		Preload("Book").
		Preload("Member").
		First(&borrowing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (r *borrowingRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowing models.Borrowing
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Book").
		Preload("Member").
		First(&borrowing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

func (r *borrowingRepository) List(db *gorm.DB) ([]models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowings []models.Borrowing
	err := db.
		Preload("Book").
		Preload("Member").
		Order("created_at DESC").
		Find(&borrowings).Error
	if err != nil {
		return nil, err
	}
	return borrowings, nil
}

func (r *borrowingRepository) ListByMember(db *gorm.DB, memberID uuid.UUID, offset, limit int) ([]models.Borrowing, int64, error) {
	if db == nil {
		db = r.db
	}
	var total int64
	if err := db.Model(&models.Borrowing{}).Where("member_id = ?", memberID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var borrowings []models.Borrowing
	err := db.
		Preload("Book").
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&borrowings).Error
	if err != nil {
		return nil, 0, err
	}
	return borrowings, total, nil
}

func (r *borrowingRepository) ListActiveByMember(db *gorm.DB, memberID uuid.UUID) ([]models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowings []models.Borrowing
	err := db.
		Preload("Book").
		Where("member_id = ? AND status = ?", memberID, models.BorrowingStatusBorrowed).
		Order("borrow_date").
		Find(&borrowings).Error
	if err != nil {
		return nil, err
	}
	return borrowings, nil
}

func (r *borrowingRepository) CountActiveByMember(db *gorm.DB, memberID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Borrowing{}).
		Where("member_id = ? AND status = ?", memberID, models.BorrowingStatusBorrowed).
		Count(&count).Error
	return count, err
}

func (r *borrowingRepository) FindActiveByBookAndMember(db *gorm.DB, bookID, memberID uuid.UUID) (*models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowing models.Borrowing
	err := db.
		Where("book_id = ? AND member_id = ? AND status = ?", bookID, memberID, models.BorrowingStatusBorrowed).
		First(&borrowing).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

// MarkReturned flips an active borrowing to RETURNED. The status predicate makes
// the transition idempotence-safe: a second call affects zero rows.
func (r *borrowingRepository) MarkReturned(db *gorm.DB, id uuid.UUID, returnDate time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Borrowing{}).
		Where("id = ? AND status = ?", id, models.BorrowingStatusBorrowed).
		Updates(map[string]interface{}{
			"return_date": returnDate,
			"status":      models.BorrowingStatusReturned,
			"updated_at":  time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *borrowingRepository) ListOverdue(db *gorm.DB, cutoff time.Time) ([]models.Borrowing, error) {
	if db == nil {
		db = r.db
	}
	var borrowings []models.Borrowing
	err := db.
		Preload("Book").
		Preload("Member").
		Where("status = ? AND borrow_date < ?", models.BorrowingStatusBorrowed, cutoff).
		Order("borrow_date").
		Find(&borrowings).Error
	if err != nil {
		return nil, err
	}
	return borrowings, nil
}

func (r *borrowingRepository) CountAll(db *gorm.DB) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Borrowing{}).Count(&count).Error
	return count, err
}

func (r *borrowingRepository) CountByStatus(db *gorm.DB, status models.BorrowingStatus) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Borrowing{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *borrowingRepository) CountOverdue(db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Borrowing{}).
		Where("status = ? AND borrow_date < ?", models.BorrowingStatusBorrowed, cutoff).
		Count(&count).Error
	return count, err
}
