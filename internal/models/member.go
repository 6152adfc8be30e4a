package models

import "time"

// Member is a workspace member who can sign in and be assigned tasks
type Member struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	WorkspaceID  string    `json:"workspaceId" gorm:"column:workspace_id;index"`
	Username     string    `json:"username" gorm:"unique;not null"`
	DisplayName  string    `json:"displayName" gorm:"column:display_name"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName specifies the table name for Member Model
func (Member) TableName() string {
	return "members"
}

// Name returns the display name, falling back to the username.
func (m Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Username
}

// Project groups the tasks of one board
type Project struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	WorkspaceID string    `json:"workspaceId" gorm:"column:workspace_id;index"`
	Name        string    `json:"name" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName specifies the table name for Project Model
func (Project) TableName() string {
	return "projects"
}
