package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sqldesk/internal/middleware"
	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/pkg/response"
	"gorm.io/gorm"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// List lets any signed-in user look up accounts, e.g. to add participants.
// GET /api/users?q=&role=
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	q := c.Query("q")
	role := c.Query("role")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := h.db.Model(&models.User{})
	if q != "" {
		query = query.Where("(name LIKE ? OR email LIKE ?)", "%"+q+"%", "%"+q+"%")
	}
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response.Error(c, err)
		return
	}
	var users []models.User
	if err := query.Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"items":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type UpdateUserRequest struct {
	Role          *string `json:"role"`
	IsActive      *bool   `json:"is_active"`
	Name          *string `json:"name"`
	FacultyNumber *string `json:"faculty_number"`
}

// Update changes another account's role or status. Admin only.
// PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "user")
	if !ok {
		return
	}
	if id == middleware.GetUserID(c) {
		response.Unprocessable(c, "Cannot modify your own account")
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		response.NotFound(c, "User not found")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updates := make(map[string]interface{})
	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleUser {
			response.Unprocessable(c, "Role must be admin or user")
			return
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.FacultyNumber != nil {
		updates["faculty_number"] = *req.FacultyNumber
	}
	if len(updates) == 0 {
		response.Unprocessable(c, "No fields to update")
		return
	}

	if err := h.db.Model(&user).Updates(updates).Error; err != nil {
		response.Error(c, err)
		return
	}
	h.db.First(&user, id)
	response.Success(c, user)
}
