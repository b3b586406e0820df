package auth

import (
	"strings"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/taskdesk/taskdesk-backend/lib/imageutil"
	"github.com/taskdesk/taskdesk-backend/lib/response"
)

type Controller struct {
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// EditProfileRequest defines the structure for the edit profile request
type EditProfileRequest struct {
	Name        string  `json:"name"`
	LastName    string  `json:"last_name"`
	DisplayName string  `json:"display_name"`
	Avatar      *string `json:"avatar"`
	Password    *string `json:"password"`
}

// LoginHandler authenticates a user by email and password and issues tokens
// @Summary Login
// @Description Authenticate with email/password and receive JWT access and refresh tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Router /api/auth/login [post]
func (c Controller) LoginHandler(request *evo.Request) any {
	var loginReq LoginRequest
	if err := request.BodyParser(&loginReq); err != nil {
		return response.Error(response.ErrInvalidInput)
	}

	// Find user by email
	var user User
	if err := db.Where("email = ?", loginReq.Email).First(&user).Error; err != nil {
		user.RecordLogin(request, false, "user_not_found")
		return response.Error(response.NewError(response.ErrorCodeUnauthorized, "Invalid email or password", 401))
	}

	if !user.Active {
		user.RecordLogin(request, false, "user_deactivated")
		return response.Error(response.NewError(response.ErrorCodeUnauthorized, "Invalid email or password", 401))
	}

	// Verify password
	if !user.VerifyPassword(loginReq.Password) {
		user.RecordLogin(request, false, "invalid_password")
		return response.Error(response.NewError(response.ErrorCodeUnauthorized, "Invalid email or password", 401))
	}

	accessToken, err := user.GenerateJWT()
	if err != nil {
		return response.Error(response.ErrInternalError)
	}

	refreshToken, err := user.GenerateRefreshToken()
	if err != nil {
		return response.Error(response.ErrInternalError)
	}

	user.RecordLogin(request, true, "")
	user.PasswordHash = nil

	return response.OK(LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    24 * 3600,
		User:         &user,
	})
}

// RefreshHandler exchanges a refresh token for a new access token
// @Summary Refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body RefreshRequest true "Refresh token"
// @Success 200 {object} LoginResponse
// @Router /api/auth/refresh [post]
func (c Controller) RefreshHandler(request *evo.Request) any {
	var refreshReq RefreshRequest
	if err := request.BodyParser(&refreshReq); err != nil {
		return response.Error(response.ErrInvalidInput)
	}

	claims, err := ParseToken(refreshReq.RefreshToken)
	if err != nil {
		return response.Error(response.ErrInvalidToken)
	}

	var user User
	if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		return response.Error(response.ErrInvalidToken)
	}

	if !user.Active {
		return response.Error(response.ErrInvalidToken)
	}

	accessToken, err := user.GenerateJWT()
	if err != nil {
		return response.Error(response.ErrInternalError)
	}

	refreshToken, err := user.GenerateRefreshToken()
	if err != nil {
		return response.Error(response.ErrInternalError)
	}

	user.PasswordHash = nil

	return response.OK(LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    24 * 3600,
		User:         &user,
	})
}

// GetProfile returns the authenticated user's profile
// @Summary Get profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} User
// @Router /api/auth/profile [get]
func (c Controller) GetProfile(request *evo.Request) any {
	if request.User().Anonymous() {
		return response.Error(response.ErrUnauthorized)
	}
	user := request.User().Interface().(*User)
	user.PasswordHash = nil
	return response.OK(user)
}

// EditProfile updates the authenticated user's own profile fields
// @Summary Edit profile
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body EditProfileRequest true "Profile fields"
// @Success 200 {object} User
// @Router /api/auth/profile [put]
func (c Controller) EditProfile(request *evo.Request) any {
	if request.User().Anonymous() {
		return response.Error(response.ErrUnauthorized)
	}
	user := request.User().Interface().(*User)

	var input EditProfileRequest
	if err := request.BodyParser(&input); err != nil {
		return response.Error(response.ErrInvalidInput)
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.LastName != "" {
		user.LastName = input.LastName
	}
	if input.DisplayName != "" {
		user.DisplayName = input.DisplayName
	}
	if input.Avatar != nil {
		if strings.HasPrefix(*input.Avatar, "data:image/") {
			url, err := imageutil.ProcessAvatarFromBase64(*input.Avatar, "users")
			if err != nil {
				return response.Error(response.NewErrorWithDetails(response.ErrorCodeInvalidInput, "Invalid avatar image", 400, err.Error()))
			}
			if user.Avatar != nil {
				imageutil.DeleteAvatar(*user.Avatar)
			}
			user.Avatar = &url
		} else {
			user.Avatar = input.Avatar
		}
	}
	if input.Password != nil && *input.Password != "" {
		if err := user.SetPassword(*input.Password); err != nil {
			return response.Error(response.ErrInternalError)
		}
	}

	if err := db.Save(user).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	user.PasswordHash = nil
	return response.OK(user)
}

// GenerateAPIKey issues a fresh API key for the authenticated user
// @Summary Generate API key
// @Tags Authentication
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/auth/api-key [post]
func (c Controller) GenerateAPIKey(request *evo.Request) any {
	if request.User().Anonymous() {
		return response.Error(response.ErrUnauthorized)
	}
	user := request.User().Interface().(*User)

	apiKey, err := user.GenerateAPIKey()
	if err != nil {
		return response.Error(response.ErrInternalError)
	}

	if err := db.Save(user).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	return response.OK(map[string]string{"api_key": apiKey})
}

// RevokeAPIKey removes the authenticated user's API key
// @Summary Revoke API key
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /api/auth/api-key [delete]
func (c Controller) RevokeAPIKey(request *evo.Request) any {
	if request.User().Anonymous() {
		return response.Error(response.ErrUnauthorized)
	}
	user := request.User().Interface().(*User)

	user.ClearAPIKey()
	if err := db.Save(user).Error; err != nil {
		return response.Error(response.ErrDatabaseError)
	}

	return response.Message("API key revoked")
}

// HRAdminMiddleware restricts a route group to HR administrators
func HRAdminMiddleware(request *evo.Request) error {
	if request.User().Anonymous() {
		return response.ErrForbidden
	}
	user := request.User().Interface().(*User)
	if user.Role != RoleHRAdmin {
		return response.ErrForbidden
	}
	return request.Next()
}
