package handlers

import (
	"errors"
	"net/http"

	"task-board-api/internal/auth"
	"task-board-api/internal/store"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token       string `json:"token"`
	MemberID    string `json:"memberId"`
	Username    string `json:"username"`
	WorkspaceID string `json:"workspaceId"`
}

// Login handles POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Username and password are required.",
		})
		return
	}

	member, err := h.dir.MemberByUsername(c.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrMemberNotFound) {
		log.WithError(err).Error("member lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		return
	}
	if err != nil || !auth.CheckPassword(member.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.issuer.GenerateToken(member)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:       token,
		MemberID:    member.ID,
		Username:    member.Username,
		WorkspaceID: member.WorkspaceID,
	})
}

// MemberResponse is the public view of a member.
type MemberResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// GetMembers handles GET /api/members and lists the caller's workspace.
func (h *Handler) GetMembers(c *gin.Context) {
	members, err := h.dir.Members(c.Request.Context(), workspaceID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	resp := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, MemberResponse{ID: m.ID, Username: m.Username, DisplayName: m.Name()})
	}

	c.JSON(http.StatusOK, gin.H{
		"members": resp,
		"count":   len(resp),
	})
}
