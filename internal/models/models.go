package models

import (
	"time"

	"github.com/google/uuid"
)

type BorrowingStatus string

const (
	BorrowingStatusBorrowed BorrowingStatus = "BORROWED"
	BorrowingStatusReturned BorrowingStatus = "RETURNED"
)

type Book struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Author        string    `gorm:"size:255;not null" json:"author"`
	PublishedYear int       `gorm:"not null" json:"published_year"`
	Stock         int       `gorm:"not null;default:0" json:"stock"`
	ISBN          string    `gorm:"size:13;uniqueIndex;not null" json:"isbn"`
	Available     bool      `gorm:"-" json:"available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Member struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"size:15;not null" json:"phone"`
	Address   string    `gorm:"type:text;not null" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Borrowing struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       Book            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"book"`
	MemberID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"member_id"`
	Member     Member          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"member"`
	BorrowDate time.Time       `gorm:"type:date;not null" json:"borrow_date"`
	ReturnDate *time.Time      `gorm:"type:date" json:"return_date"`
	Status     BorrowingStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// OverdueBorrowing is a reporting view of an active borrowing that has been
// out longer than the overdue threshold.
type OverdueBorrowing struct {
	Borrowing
	DaysBorrowed int `json:"days_borrowed"`
}

// BorrowingStats aggregates borrowing counts for the stats report.
type BorrowingStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Overdue  int64 `json:"overdue"`
	Returned int64 `json:"returned"`
}
