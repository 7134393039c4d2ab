package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"crowdfund-api/internal/model"
	"crowdfund-api/internal/pkg/jwtutil"
	"crowdfund-api/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidPhone      = errors.New("please enter a valid phone number (11 digits starting with 01)")
	ErrPasswordTooShort  = errors.New("password is too short")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrPhoneExists       = errors.New("phone already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrUserNotFound      = errors.New("user not found")
)

// CampaignEvictor drops cached campaigns that an account delete removes
// through the foreign key cascade.
type CampaignEvictor interface {
	OwnedIDs(ctx context.Context, ownerID uint) ([]uint, error)
	Evict(ctx context.Context, ids []uint)
}

type AuthService struct {
	userRepo          *repository.UserRepository
	campaigns         CampaignEvictor
	jwtSecret         string
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	minPasswordLength int
}

type RegisterInput struct {
	Username  string
	Email     string
	Phone     string
	Password  string
	FirstName string
	LastName  string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

type AuthOptions struct {
	JWTSecret         string
	AccessExpiration  time.Duration
	RefreshExpiration time.Duration
	MinPasswordLength int
	Campaigns         CampaignEvictor
}

func NewAuthService(userRepo *repository.UserRepository, opts AuthOptions) *AuthService {
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 8
	}
	return &AuthService{
		userRepo:          userRepo,
		jwtSecret:         opts.JWTSecret,
		accessExpiration:  opts.AccessExpiration,
		refreshExpiration: opts.RefreshExpiration,
		minPasswordLength: opts.MinPasswordLength,
		campaigns:         opts.Campaigns,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	phone := strings.TrimSpace(input.Phone)
	password := input.Password

	if username == "" || email == "" || phone == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if !model.ValidPhone(phone) {
		return nil, ErrInvalidPhone
	}
	if len(password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if err := s.checkUnique(ctx, username, email, phone); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		Phone:        phone,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// lost a race with a concurrent registration
			if uniqueErr := s.checkUnique(ctx, username, email, phone); uniqueErr != nil {
				return nil, uniqueErr
			}
		}
		return nil, err
	}

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := input.Password
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	return s.issue(user)
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := jwtutil.ParseRefreshToken(s.jwtSecret, strings.TrimSpace(refreshToken))
	if err != nil {
		return "", ErrInvalidToken
	}

	exists, err := s.userRepo.Exists(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrInvalidToken
	}

	return jwtutil.GenerateToken(s.jwtSecret, s.accessExpiration, claims.UserID, claims.Username)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	user, err := s.userRepo.GetWithAccess(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// DeleteAccount removes the user together with everything it owns.
func (s *AuthService) DeleteAccount(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}

	var owned []uint
	if s.campaigns != nil {
		ids, err := s.campaigns.OwnedIDs(ctx, id)
		if err != nil {
			return err
		}
		owned = ids
	}

	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUserNotFound
	}
	if s.campaigns != nil {
		s.campaigns.Evict(ctx, owned)
	}
	return nil
}

// AssignGroup adds the user to the named group, creating the group when it
// does not exist yet.
func (s *AuthService) AssignGroup(ctx context.Context, username, group string) error {
	group = strings.TrimSpace(group)
	if group == "" {
		return ErrInvalidInput
	}
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.userRepo.AddToGroup(ctx, user.ID, &model.Group{Name: group})
}

func (s *AuthService) GrantPermission(ctx context.Context, username, codename, name string) error {
	codename = strings.TrimSpace(codename)
	if codename == "" {
		return ErrInvalidInput
	}
	if name = strings.TrimSpace(name); name == "" {
		name = codename
	}
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.userRepo.GrantPermission(ctx, user.ID, &model.Permission{Codename: codename, Name: name})
}

func (s *AuthService) userByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) checkUnique(ctx context.Context, username, email, phone string) error {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameExists
	}

	existing, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailExists
	}

	existing, err = s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrPhoneExists
	}
	return nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	access, err := jwtutil.GenerateToken(s.jwtSecret, s.accessExpiration, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	refresh, err := jwtutil.GenerateRefreshToken(s.jwtSecret, s.refreshExpiration, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
