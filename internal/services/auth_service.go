package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicconnect/internal/domain"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
	"civicconnect/internal/utils"
	"civicconnect/pkg/logger"
)

type AuthService struct {
	users store.UserStore
	jwt   *utils.JWTManager
}

func NewAuthService(users store.UserStore, jwt *utils.JWTManager) *AuthService {
	return &AuthService{users: users, jwt: jwt}
}

type RegisterInput struct {
	UserName  string `json:"userName" validate:"required,min=2,max=100"`
	UserEmail string `json:"userEmail" validate:"required,email"`
	Password  string `json:"userPassword" validate:"required,min=6,max=72"`
	Address   string `json:"userAddress" validate:"required,max=500"`
	Role      string `json:"userRole" validate:"omitempty,user_role"`
}

type LoginInput struct {
	UserEmail string `json:"userEmail" validate:"required,email"`
	Password  string `json:"userPassword" validate:"required"`
}

// Session is a successful login.
type Session struct {
	User      *models.User `json:"user"`
	Token     string       `json:"accessToken"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)

// Register creates a citizen account. Authority accounts are provisioned out of band.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.UserEmail = strings.ToLower(strings.TrimSpace(in.UserEmail))
	in.Address = strings.TrimSpace(in.Address)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Role == models.RoleAuthority {
		return nil, domain.Forbidden("authority accounts cannot self-register")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	u := &models.User{
		UserName:  in.UserName,
		UserEmail: in.UserEmail,
		Password:  hash,
		Address:   in.Address,
		Role:      models.RoleCitizen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.LogUserAction(u.ID.Hex(), "registered", map[string]interface{}{"role": u.Role})
	return u, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, in LoginInput, ip string) (*Session, error) {
	in.UserEmail = strings.ToLower(strings.TrimSpace(in.UserEmail))
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	u, err := s.users.GetByEmail(ctx, in.UserEmail)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.LogSecurityEvent("login_unknown_email", "", ip, map[string]interface{}{"email": in.UserEmail})
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !utils.CheckPassword(in.Password, u.Password) {
		logger.LogSecurityEvent("login_bad_password", u.ID.Hex(), ip, nil)
		return nil, errInvalidCredentials
	}

	token, err := s.jwt.GenerateUserJWT(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, u.ID, now); err != nil {
		logger.WithError(err).WithField("user_id", u.ID.Hex()).Warn("Failed to record last login")
	} else {
		u.LastLogin = &now
	}

	logger.LogUserAction(u.ID.Hex(), "logged_in", map[string]interface{}{"ip": ip, "role": u.Role})
	return &Session{User: u, Token: token, ExpiresAt: now.Add(s.jwt.TTL())}, nil
}
