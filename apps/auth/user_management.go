package auth

import (
	"fmt"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/taskdesk/taskdesk-backend/lib/response"
)

var validate = validator.New()

// CreateUserRequest represents the request structure for creating a user
type CreateUserRequest struct {
	Name                string `json:"name" validate:"required,min=1,max=255"`
	LastName            string `json:"last_name" validate:"required,min=1,max=255"`
	Email               string `json:"email" validate:"required,email"`
	Password            string `json:"password" validate:"required,min=8"`
	Role                string `json:"role" validate:"required,oneof=staff manager hr_admin"`
	DepartmentID        uint   `json:"department_id" validate:"required"`
	ManagedDepartmentID *uint  `json:"managed_department_id"`
}

// UpdateUserRequest represents the request structure for updating a user
type UpdateUserRequest struct {
	Name                *string `json:"name" validate:"omitempty,min=1,max=255"`
	LastName            *string `json:"last_name" validate:"omitempty,min=1,max=255"`
	Role                *string `json:"role" validate:"omitempty,oneof=staff manager hr_admin"`
	DepartmentID        *uint   `json:"department_id"`
	ManagedDepartmentID *uint   `json:"managed_department_id"`
	Active              *bool   `json:"active"`
}

// ParseToken validates a JWT string and returns its claims
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return JWTSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ListUsers returns a paginated user list, optionally filtered by role or department
// @Summary List users
// @Tags Admin - Users
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Items per page (max 100)" default(50)
// @Param role query string false "Filter by role"
// @Param department_id query int false "Filter by home department"
// @Success 200 {array} User
// @Router /api/admin/users [get]
func (c Controller) ListUsers(request *evo.Request) any {
	query := db.Model(&User{})

	if role := request.Query("role").String(); role != "" {
		query = query.Where("role = ?", role)
	}
	if departmentID := request.Query("department_id").Int(); departmentID > 0 {
		query = query.Where("department_id = ?", departmentID)
	}

	var users []User
	p, err := pagination.New(query, request, &users, pagination.Options{MaxSize: 100})
	if err != nil {
		return response.Error(response.ErrInternalError)
	}

	for i := range users {
		users[i].PasswordHash = nil
		users[i].APIKey = nil
	}

	return response.OKWithMeta(users, &response.Meta{
		Page:       p.CurrentPage,
		Limit:      p.Size,
		Total:      int64(p.Records),
		TotalPages: p.Pages,
	})
}

// CreateUser creates a new user account
// @Summary Create user
// @Tags Admin - Users
// @Accept json
// @Produce json
// @Param body body CreateUserRequest true "User fields"
// @Success 201 {object} User
// @Router /api/admin/users [post]
func (c Controller) CreateUser(request *evo.Request) any {
	var input CreateUserRequest
	if err := request.BodyParser(&input); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(input); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeValidationError, "Invalid user data", 400, err.Error()))
	}

	var existing User
	if err := db.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return response.Error(response.NewError(response.ErrorCodeConflict, "Email already in use", 409))
	}

	user := User{
		Name:                input.Name,
		LastName:            input.LastName,
		DisplayName:         input.Name + " " + input.LastName,
		Email:               input.Email,
		Role:                input.Role,
		DepartmentID:        input.DepartmentID,
		ManagedDepartmentID: input.ManagedDepartmentID,
		Active:              true,
	}
	if err := user.SetPassword(input.Password); err != nil {
		return response.Error(response.ErrInternalError)
	}

	if err := db.Create(&user).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	user.PasswordHash = nil
	return response.Created(user)
}

// GetUser returns a single user by id
// @Summary Get user
// @Tags Admin - Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} User
// @Router /api/admin/users/{id} [get]
func (c Controller) GetUser(request *evo.Request) any {
	userID, err := uuid.Parse(request.Param("id").String())
	if err != nil {
		return response.Error(response.ErrInvalidUserID)
	}

	var user User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return response.Error(response.ErrUserNotFound)
	}

	user.PasswordHash = nil
	user.APIKey = nil
	return response.OK(user)
}

// UpdateUser updates role, department, managed department or active flag
// @Summary Update user
// @Tags Admin - Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body UpdateUserRequest true "Fields to update"
// @Success 200 {object} User
// @Router /api/admin/users/{id} [put]
func (c Controller) UpdateUser(request *evo.Request) any {
	userID, err := uuid.Parse(request.Param("id").String())
	if err != nil {
		return response.Error(response.ErrInvalidUserID)
	}

	var input UpdateUserRequest
	if err := request.BodyParser(&input); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(input); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeValidationError, "Invalid user data", 400, err.Error()))
	}

	var user User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return response.Error(response.ErrUserNotFound)
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Name != nil || input.LastName != nil {
		user.DisplayName = user.Name + " " + user.LastName
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.DepartmentID != nil {
		user.DepartmentID = *input.DepartmentID
	}
	if input.ManagedDepartmentID != nil {
		user.ManagedDepartmentID = input.ManagedDepartmentID
	}
	if input.Active != nil {
		user.Active = *input.Active
	}

	if err := db.Save(&user).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	user.PasswordHash = nil
	return response.OK(user)
}

// DeactivateUser disables a user account. Accounts are never hard-deleted
// so that task ownership and audit history stay intact.
// @Summary Deactivate user
// @Tags Admin - Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.APIResponse
// @Router /api/admin/users/{id} [delete]
func (c Controller) DeactivateUser(request *evo.Request) any {
	userID, err := uuid.Parse(request.Param("id").String())
	if err != nil {
		return response.Error(response.ErrInvalidUserID)
	}

	var user User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return response.Error(response.ErrUserNotFound)
	}

	user.Active = false
	user.ClearAPIKey()
	if err := db.Save(&user).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	return response.Message("User deactivated")
}
