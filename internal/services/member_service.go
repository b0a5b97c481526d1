package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"library/internal/models"
	"library/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrMemberNotFound is returned when the referenced member does not exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrEmailExists is returned when registering or updating a member with
	// an email already registered to another member.
	ErrEmailExists = errors.New("member with this email already exists")

	// ErrInvalidEmail is returned when the email does not look like an address.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidPhone is returned when the phone number fails basic validation.
	ErrInvalidPhone = errors.New("invalid phone number format")
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{10,}$`)
)

// BorrowingHistoryPage is a paginated slice of a member's borrowing history.
type BorrowingHistoryPage struct {
	Borrowings []models.Borrowing `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// ─── Service Interface ────────────────────────────────────────────────────────

// MemberService implements member registration and lookups.
type MemberService interface {
	CreateMember(name, email, phone, address string) (*models.Member, error)
	GetMember(id uuid.UUID) (*models.Member, error)
	ListMembers() ([]models.Member, error)
	UpdateMember(id uuid.UUID, name, email, phone, address string) (*models.Member, error)
	DeleteMember(id uuid.UUID) error
	BorrowingHistory(memberID uuid.UUID, page, limit int) (*BorrowingHistoryPage, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type memberService struct {
	memberRepo    repositories.MemberRepository
	borrowingRepo repositories.BorrowingRepository
}

// NewMemberService returns a MemberService backed by the given repositories.
func NewMemberService(memberRepo repositories.MemberRepository, borrowingRepo repositories.BorrowingRepository) MemberService {
	return &memberService{memberRepo: memberRepo, borrowingRepo: borrowingRepo}
}

// CreateMember registers a member after validating email and phone formats and
// email uniqueness.
func (s *memberService) CreateMember(name, email, phone, address string) (*models.Member, error) {
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}

	if existing, err := s.memberRepo.GetByEmail(nil, email); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailExists, email)
	}

	member := &models.Member{
		Name:    name,
		Email:   email,
		Phone:   phone,
		Address: address,
	}
	if err := s.memberRepo.Create(nil, member); err != nil {
		log.Printf("[ERROR] CreateMember: failed to create member record: %v", err)
		return nil, err
	}
	log.Printf("[INFO] CreateMember: registered member %q (id=%s)", member.Name, member.ID)
	return member, nil
}

// GetMember returns a single member by id.
func (s *memberService) GetMember(id uuid.UUID) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
		return nil, err
	}
	return member, nil
}

// ListMembers returns all registered members.
func (s *memberService) ListMembers() ([]models.Member, error) {
	return s.memberRepo.List(nil)
}

// UpdateMember replaces a member's record. Changing the email re-checks
// uniqueness.
func (s *memberService) UpdateMember(id uuid.UUID, name, email, phone, address string) (*models.Member, error) {
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}

	member, err := s.memberRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
		return nil, err
	}

	if email != member.Email {
		if existing, err := s.memberRepo.GetByEmail(nil, email); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		} else if existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrEmailExists, email)
		}
	}

	member.Name = name
	member.Email = email
	member.Phone = phone
	member.Address = address
	if err := s.memberRepo.Update(nil, member); err != nil {
		log.Printf("[ERROR] UpdateMember: failed to update member %s: %v", id, err)
		return nil, err
	}
	return member, nil
}

// DeleteMember removes a member.
func (s *memberService) DeleteMember(id uuid.UUID) error {
	if _, err := s.memberRepo.GetByID(nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
		return err
	}
	if err := s.memberRepo.Delete(nil, id); err != nil {
		log.Printf("[ERROR] DeleteMember: failed to delete member %s: %v", id, err)
		return err
	}
	log.Printf("[INFO] DeleteMember: deleted member %s", id)
	return nil
}

// BorrowingHistory returns a page of the member's borrowings, newest first.
func (s *memberService) BorrowingHistory(memberID uuid.UUID, page, limit int) (*BorrowingHistoryPage, error) {
	if _, err := s.memberRepo.GetByID(nil, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
		}
		return nil, err
	}

	page, limit = normalizePage(page, limit)
	borrowings, total, err := s.borrowingRepo.ListByMember(nil, memberID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &BorrowingHistoryPage{Borrowings: borrowings, Pagination: paginate(total, page, limit)}, nil
}
