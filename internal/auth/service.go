package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/archivesocial/archive/backend/internal/cache"
	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/archivesocial/archive/backend/internal/email"
	"github.com/archivesocial/archive/backend/internal/logger"
	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Accepted password lengths in bytes; bcrypt rejects anything past 72
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrInvalidUsername    = errors.New("username must be 3-30 characters of letters, digits, _ or .")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

var validate = validator.New()

// Options configures a Service
type Options struct {
	JWTSecret                []byte
	TokenTTL                 time.Duration
	RequireEmailConfirmation bool
	Mailer                   email.Sender
	Redis                    *cache.RedisClient
	PublicBaseURL            string
}

// Service handles all authentication operations
type Service struct {
	jwtSecret           []byte
	tokenTTL            time.Duration
	requireConfirmation bool
	mailer              email.Sender
	redis               *cache.RedisClient
	publicBaseURL       string
}

// NewService creates a new authentication service
func NewService(opts Options) *Service {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	mailer := opts.Mailer
	if mailer == nil {
		mailer = email.NewLogSender()
	}
	return &Service{
		jwtSecret:           opts.JWTSecret,
		tokenTTL:            ttl,
		requireConfirmation: opts.RequireEmailConfirmation,
		mailer:              mailer,
		redis:               opts.Redis,
		publicBaseURL:       strings.TrimSuffix(opts.PublicBaseURL, "/"),
	}
}

// Claims are the JWT claims issued by this service
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token                string       `json:"token,omitempty"`
	User                 *models.User `json:"user"`
	Email                string       `json:"email"`
	ExpiresAt            *time.Time   `json:"expires_at,omitempty"`
	ConfirmationRequired bool         `json:"confirmation_required,omitempty"`
}

// RegisterRequest represents native registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
}

// LoginRequest represents native login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new user with email/password
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Var(emailAddr, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}

	db := database.DB.WithContext(ctx)

	var existing int64
	if err := db.Model(&models.User{}).Where("LOWER(email) = ?", emailAddr).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if existing > 0 {
		return nil, ErrUserExists
	}

	username := strings.TrimSpace(req.Username)
	if username != "" {
		if !util.IsValidUsername(username) {
			return nil, ErrInvalidUsername
		}
		taken, err := usernameTaken(db, username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameExists
		}
	} else {
		var err error
		username, err = s.deriveUsername(db, emailAddr)
		if err != nil {
			return nil, err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        emailAddr,
		Username:     username,
		PasswordHash: string(hashedPassword),
	}
	if s.requireConfirmation {
		token := randomToken()
		user.ConfirmationToken = &token
	} else {
		now := db.NowFunc()
		user.EmailConfirmedAt = &now
	}

	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))

	if s.requireConfirmation {
		link := fmt.Sprintf("%s/api/v1/auth/confirm?token=%s", s.publicBaseURL, url.QueryEscape(*user.ConfirmationToken))
		if err := s.mailer.SendConfirmation(ctx, user.Email, link); err != nil {
			logger.ErrorWithFields("Failed to send confirmation email", err)
		}
		return &AuthResponse{User: &user, Email: user.Email, ConfirmationRequired: true}, nil
	}

	return s.generateAuthResponse(&user)
}

// Login authenticates with email/password
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := database.DB.WithContext(ctx).Where("LOWER(email) = ?", emailAddr).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.requireConfirmation && !user.IsEmailConfirmed() {
		return nil, ErrEmailNotConfirmed
	}

	return s.generateAuthResponse(&user)
}

// ConfirmEmail marks the account owning token as confirmed
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	db := database.DB.WithContext(ctx)

	var user models.User
	err := db.Where("confirmation_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	now := db.NowFunc()
	err = db.Model(&user).Updates(map[string]interface{}{
		"email_confirmed_at": now,
		"confirmation_token": nil,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to confirm email: %w", err)
	}
	user.EmailConfirmedAt = &now
	user.ConfirmationToken = nil
	return &user, nil
}

func checkPassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrWeakPassword
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	return nil
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := checkPassword(next); err != nil {
		return err
	}
	db := database.DB.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return db.Model(&user).Update("password_hash", string(hashed)).Error
}

// ValidateToken validates a JWT token and returns the fresh user row
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		n, err := s.redis.Exists(ctx, revokedKey(claims.ID))
		if err != nil {
			logger.WarnWithFields("Token revocation check failed", err)
		} else if n > 0 {
			return nil, ErrTokenRevoked
		}
	}

	var user models.User
	err = database.DB.WithContext(ctx).First(&user, "id = ?", claims.Subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &user, nil
}

// Logout revokes the token until it would have expired anyway
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	if s.redis == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.redis.SetEx(ctx, revokedKey(claims.ID), "1", ttl)
}

// IssueToken signs a token for an existing user (seed tooling, tests)
func (s *Service) IssueToken(user *models.User) (*AuthResponse, error) {
	return s.generateAuthResponse(user)
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// generateAuthResponse creates JWT token and auth response
func (s *Service) generateAuthResponse(user *models.User) (*AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      user,
		Email:     user.Email,
		ExpiresAt: &expiresAt,
	}, nil
}

// deriveUsername turns the email local part into a free username
func (s *Service) deriveUsername(db *gorm.DB, emailAddr string) (string, error) {
	base := SanitizeUsername(strings.SplitN(emailAddr, "@", 2)[0])

	candidate := base
	for i := 1; i <= 1000; i++ {
		taken, err := usernameTaken(db, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return base + randomToken()[:6], nil
}

// SanitizeUsername lower-cases s and keeps [a-z0-9_.], padding short results
func SanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 24 {
		out = out[:24]
	}
	if len(out) < 3 {
		out = "user" + out
	}
	return out
}

func usernameTaken(db *gorm.DB, username string) (bool, error) {
	var n int64
	if err := db.Model(&models.User{}).Where("LOWER(username) = LOWER(?)", username).Count(&n).Error; err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	return n > 0, nil
}

func revokedKey(jti string) string {
	return "auth:revoked:" + jti
}

func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
	}
	return hex.EncodeToString(buf)
}
