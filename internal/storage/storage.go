package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resolveflow/backend/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique field is already taken.
var ErrDuplicate = errors.New("record already exists")

// ComplaintFilter narrows ListComplaints. Zero fields are ignored.
type ComplaintFilter struct {
	CustomerID string
	AssignedTo string
	Status     models.Status
	// WithTimeline preloads the audit trail of each complaint.
	WithTimeline bool
}

// Storage is the record store used by the lifecycle and chat services.
type Storage interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error

	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error)
	// SaveComplaint writes the complaint's own columns and inserts the given
	// new timeline events in one transaction.
	SaveComplaint(ctx context.Context, c *models.Complaint, events []models.TimelineEvent) error
	AppendMessage(ctx context.Context, msg *models.ConversationMessage) error

	BlockUser(ctx context.Context, id string, ttl time.Duration) error
	UnblockUser(ctx context.Context, id string) error
	IsUserBlocked(ctx context.Context, id string) (bool, error)
}

// Service is the PostgreSQL + Redis implementation of Storage.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.TimelineEvent{},
		&models.ConversationMessage{},
	)
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

// ListUsers returns users holding role, or every user when role is empty.
func (s *Service) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	q := s.DB.WithContext(ctx).Order("name asc")
	if role != "" {
		values := []string{string(role)}
		if role == models.RoleCustomer {
			values = append(values, "user")
		}
		q = q.Where("roles && ?", pq.StringArray(values))
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	err := s.DB.WithContext(ctx).Save(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: user %s", ErrDuplicate, user.Email)
	}
	return err
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return nil
}

// CreateComplaint inserts the complaint together with its initial timeline.
func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return s.DB.WithContext(ctx).Create(c).Error
}

// GetComplaint loads a complaint with its timeline and conversation in append order.
func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("TimelineEvents", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") }).
		Preload("Conversations", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") }).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, notFound(err, "complaint", id)
	}
	return &c, nil
}

func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	var out []models.Complaint
	q := s.DB.WithContext(ctx).Order("created_at desc")
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.WithTimeline {
		q = q.Preload("TimelineEvents", func(db *gorm.DB) *gorm.DB { return db.Order("seq asc") })
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) SaveComplaint(ctx context.Context, c *models.Complaint, events []models.TimelineEvent) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(c).Error; err != nil {
			return err
		}
		if len(events) > 0 {
			if err := tx.Create(&events).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendMessage inserts a chat message and bumps the complaint's UpdatedAt.
func (s *Service) AppendMessage(ctx context.Context, msg *models.ConversationMessage) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Complaint{}).
			Where("id = ?", msg.ComplaintID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

func blockKey(id string) string { return "block:" + id }

// BlockUser marks a user as blocked in Redis. A zero ttl blocks until UnblockUser.
func (s *Service) BlockUser(ctx context.Context, id string, ttl time.Duration) error {
	if s.Redis == nil {
		return errors.New("block list requires redis")
	}
	return s.Redis.Set(ctx, blockKey(id), time.Now().Unix(), ttl).Err()
}

func (s *Service) UnblockUser(ctx context.Context, id string) error {
	if s.Redis == nil {
		return errors.New("block list requires redis")
	}
	return s.Redis.Del(ctx, blockKey(id)).Err()
}

// IsUserBlocked checks the block list in Redis. Without Redis nobody is blocked.
func (s *Service) IsUserBlocked(ctx context.Context, id string) (bool, error) {
	if s.Redis == nil {
		return false, nil
	}
	status, err := s.Redis.Get(ctx, blockKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}
