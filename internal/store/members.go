package store

import (
	"context"
	"errors"
	"time"

	"task-board-api/internal/cache"
	"task-board-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Directory stores workspace members and projects. Member name lookups are
// cached per workspace for ttl.
type Directory struct {
	db    *gorm.DB
	names *cache.TTLCache[string, map[string]string]
}

func NewDirectory(db *gorm.DB, ttl time.Duration) *Directory {
	return &Directory{db: db, names: cache.New[string, map[string]string](ttl)}
}

// AddMember inserts a member; a blank id is replaced with a new uuid.
func (d *Directory) AddMember(ctx context.Context, m models.Member) (models.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := d.db.WithContext(ctx).Create(&m).Error; err != nil {
		return models.Member{}, err
	}
	d.names.Delete(m.WorkspaceID)
	return m, nil
}

// MemberByUsername looks a member up for login.
func (d *Directory) MemberByUsername(ctx context.Context, username string) (models.Member, error) {
	var m models.Member
	if err := d.db.WithContext(ctx).Where("username = ?", username).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Member{}, ErrMemberNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

// Member looks a member up by id.
func (d *Directory) Member(ctx context.Context, id string) (models.Member, error) {
	var m models.Member
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Member{}, ErrMemberNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

// Members lists the members of a workspace ordered by username.
func (d *Directory) Members(ctx context.Context, workspaceID string) ([]models.Member, error) {
	var members []models.Member
	err := d.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("username asc").Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// MemberNames maps member ids of a workspace to display names.
func (d *Directory) MemberNames(ctx context.Context, workspaceID string) (map[string]string, error) {
	return d.names.GetOrLoad(workspaceID, func() (map[string]string, error) {
		members, err := d.Members(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
		names := make(map[string]string, len(members))
		for _, m := range members {
			names[m.ID] = m.Name()
		}
		return names, nil
	})
}

// AddProject inserts a project; a blank id is replaced with a new uuid.
func (d *Directory) AddProject(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := d.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Project looks a project up by id.
func (d *Directory) Project(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	return p, nil
}
