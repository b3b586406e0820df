package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/generic"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/evo/v2/lib/settings"
	"github.com/getevo/restify"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hlandau/passlib"
	"gorm.io/gorm"
)

// User role constants. A role is a closed set; the ability to manage a
// department is carried separately on ManagedDepartmentID so that an
// HR administrator may additionally head a department.
const (
	RoleStaff   = "staff"
	RoleManager = "manager"
	RoleHRAdmin = "hr_admin"
)

// JWT configuration
var JWTSecret []byte

// InitializeJWTSecret should be called during app initialization (Register or WhenReady)
func InitializeJWTSecret() {
	// Try to get from config/env
	secret := settings.Get("JWT.SECRET").String()
	if secret == "" {
		// Fallback to environment variable
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		// Development fallback - should be changed in production
		log.Warning("JWT_SECRET not set, using development key. Change this in production!")
		secret = "your-secret-key-change-this-in-production"
	}
	JWTSecret = []byte(secret)
	log.Debug("JWT secret initialized successfully")
}

// JWT Claims structure
type Claims struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	DepartmentID uint   `json:"department_id"`
	jwt.RegisteredClaims
}

type User struct {
	UserID              uuid.UUID `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	Name                string    `gorm:"column:name;size:255;not null" json:"name"`
	LastName            string    `gorm:"column:last_name;size:255;not null" json:"last_name"`
	DisplayName         string    `gorm:"column:display_name;size:255" json:"display_name"`
	Avatar              *string   `gorm:"column:avatar;size:500" json:"avatar"`
	Email               string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash        *string   `gorm:"column:password_hash;size:255" json:"password_hash,omitempty"`
	APIKey              *string   `gorm:"column:api_key;size:255;uniqueIndex" json:"api_key,omitempty"`
	Role                string    `gorm:"column:role;size:50;not null;check:role IN ('staff','manager','hr_admin')" json:"role"`
	DepartmentID        uint      `gorm:"column:department_id;not null;index" json:"department_id"`
	ManagedDepartmentID *uint     `gorm:"column:managed_department_id;index" json:"managed_department_id"`
	Active              bool      `gorm:"column:active;not null;default:1" json:"active"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	LoginHistory []UserLoginHistory `gorm:"foreignKey:UserID;references:UserID" json:"login_history,omitempty"`

	restify.API
}

type UserLoginHistory struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:char(36);not null;index;fk:users" json:"user_id"`
	IPAddress string    `gorm:"column:ip_address;size:45;not null" json:"ip_address"`
	UserAgent string    `gorm:"column:user_agent;size:500" json:"user_agent"`
	LoginAt   time.Time `gorm:"column:login_at;autoCreateTime" json:"login_at"`
	Success   bool      `gorm:"column:success;not null" json:"success"`
	Reason    string    `gorm:"column:reason;size:255" json:"reason"`

	// Relationships
	User User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`

	restify.API
}

// BeforeCreate hook to generate UUID for User
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.UserID = uuid.New()
	return nil
}

// ManagesDepartment reports whether the user heads a department. This is
// orthogonal to Role: an HR administrator heading a department gains
// manager-scoped edit rights over that hierarchy.
func (u *User) ManagesDepartment() bool {
	return u.ManagedDepartmentID != nil && *u.ManagedDepartmentID != 0
}

// Evo UserInterface implementation
func (u *User) GetFirstName() string {
	return u.Name
}

func (u *User) GetLastName() string {
	return u.LastName
}

func (u *User) GetFullName() string {
	return u.DisplayName
}

func (u *User) GetEmail() string {
	return u.Email
}

func (u *User) UUID() string {
	return u.UserID.String()
}

func (u *User) ID() uint64 {
	// Convert UUID to uint64 for compatibility
	return uint64(u.UserID.ID())
}

func (u *User) Interface() interface{} {
	return u
}

func (u *User) Anonymous() bool {
	return u.UserID == uuid.Nil
}

func (u *User) HasPermission(permission string) bool {
	return u.Role == RoleHRAdmin
}

func (u *User) Attributes() evo.Attributes {
	var m evo.Attributes
	generic.Parse(u).Cast(&m)
	return m
}

// FromRequest extracts user from JWT token in request
func (u *User) FromRequest(request *evo.Request) evo.UserInterface {
	authToken, ok := GetAuthToken(request)
	if !ok || authToken == "" {
		return u
	}

	// Handle API Key authentication
	if strings.HasPrefix(authToken, "APIKey") {
		apikey := strings.TrimSpace(authToken[6:])
		if apikey != "" {
			var user User
			if err := db.Where("api_key = ?", apikey).First(&user).Error; err != nil {
				log.Debug("API key not found:", err)
				return u
			}
			if !user.Anonymous() && user.Active {
				return &user
			}
		}
		return u
	}

	// Handle JWT Bearer token authentication
	if !strings.HasPrefix(authToken, "Bearer ") {
		return u
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authToken, "Bearer "))

	if len(JWTSecret) == 0 {
		log.Error("JWT secret is not initialized!")
		return u
	}

	jwtToken, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return JWTSecret, nil
	})

	if err != nil {
		log.Debug("JWT parsing error:", err)
		return u
	}

	if !jwtToken.Valid {
		log.Debug("JWT token is not valid")
		return u
	}

	claims, ok := jwtToken.Claims.(*Claims)
	if !ok {
		log.Debug("JWT claims parsing failed")
		return u
	}

	// Find user in database
	var user User
	if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		log.Debug("User not found for claims:", claims.UserID)
		return u
	}

	if !user.Active {
		log.Debug("Deactivated user attempted access:", claims.UserID)
		return u
	}

	return &user
}

// Password and JWT utilities
func (u *User) SetPassword(password string) error {
	hash, err := passlib.Hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = &hash
	return nil
}

func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == nil {
		return false
	}
	_, err := passlib.Verify(password, *u.PasswordHash)
	return err == nil
}

// GenerateAPIKey creates a new API key for the user
func (u *User) GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	// Convert to hex string and add prefix for easy identification
	apiKey := "tdk_" + hex.EncodeToString(bytes)
	u.APIKey = &apiKey

	return apiKey, nil
}

// ClearAPIKey removes the API key from the user
func (u *User) ClearAPIKey() {
	u.APIKey = nil
}

func (u *User) GenerateJWT() (string, error) {
	claims := Claims{
		UserID:       u.UserID.String(),
		Email:        u.Email,
		Name:         u.GetFullName(),
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

func (u *User) GenerateRefreshToken() (string, error) {
	claims := Claims{
		UserID: u.UserID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// RecordLogin creates a login history record
func (u *User) RecordLogin(request *evo.Request, success bool, reason string) {
	ip := request.IP()
	if ip == "" {
		ip = "unknown"
	}

	userAgent := request.Header("User-Agent")
	if userAgent == "" {
		userAgent = "unknown"
	}

	history := UserLoginHistory{
		UserID:    u.UserID,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   success,
		Reason:    reason,
	}

	if err := db.Create(&history).Error; err != nil {
		log.Error("Failed to record login history: %v", err)
	}
}

// GetAuthToken extracts the authorization token from the request headers
func GetAuthToken(request *evo.Request) (string, bool) {
	token := request.Header("Authorization")
	if token == "" {
		return "", false
	}
	return token, true
}
