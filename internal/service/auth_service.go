package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/internal/repo/postgres"
	"github.com/shoplite/shoplite-api/internal/utils"
	"github.com/shoplite/shoplite-api/pkg/auth"
	"github.com/shoplite/shoplite-api/pkg/config"
	"github.com/shoplite/shoplite-api/pkg/events"
	"github.com/shoplite/shoplite-api/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users postgres.UsersRepo
	otps  postgres.OTPRepo
	bus   events.Publisher
	cfg   *config.Config
}

func NewAuthService(users postgres.UsersRepo, otps postgres.OTPRepo, bus events.Publisher, cfg *config.Config) *AuthService {
	return &AuthService{users: users, otps: otps, bus: bus, cfg: cfg}
}

// SendOTP generates a one-time registration code, stores its hash and queues
// the email. The code itself only ever leaves the process inside the mail.
func (s *AuthService) SendOTP(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return domain.Errorf(domain.KindInvalid, "Email is required")
	}
	if !utils.IsValidEmail(email) {
		return domain.Errorf(domain.KindInvalid, "Invalid email format")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return domain.Errorf(domain.KindConflict, "User already exists with this email")
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash OTP: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.Auth.OTPTTL)
	if err := s.otps.Create(ctx, email, string(hash), expiresAt); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	evt := events.NotifySendEvent{
		MessageID: uuid.NewString(),
		Kind:      events.NotifyOTP,
		To:        email,
		OTPCode:   code,
	}
	if err := s.bus.Publish(ctx, events.NotifySend, evt); err != nil {
		// Without the email the code is unreachable, so this is a hard failure.
		return fmt.Errorf("failed to queue OTP email: %w", err)
	}

	logger.InfoContext(ctx, "OTP issued", "email", email, "expires_at", expiresAt)
	return nil
}

// Register verifies the OTP, creates the account and returns a signed token.
// The OTP record is consumed on success so the same code cannot be replayed.
func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" || req.OTP == "" {
		return nil, domain.Errorf(domain.KindInvalid, "Name, email, password and OTP are required")
	}
	if !utils.IsValidEmail(req.Email) {
		return nil, domain.Errorf(domain.KindInvalid, "Invalid email format")
	}

	otp, err := s.otps.FindLatestByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up OTP: %w", err)
	}
	if otp == nil || bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(req.OTP)) != nil {
		return nil, domain.Errorf(domain.KindInvalid, "Invalid OTP")
	}
	if otp.Expired(time.Now()) {
		return nil, domain.Errorf(domain.KindInvalid, "OTP has expired")
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, domain.Errorf(domain.KindConflict, "User already exists with this email")
	}

	hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := domain.RoleCustomer
	if s.cfg.Auth.BootstrapAdminEmail != "" && req.Email == utils.NormalizeEmail(s.cfg.Auth.BootstrapAdminEmail) {
		role = domain.RoleAdmin
	}

	user, err := s.users.Create(ctx, req.Name, req.Email, hash, req.Phone, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.otps.Delete(ctx, otp.ID); err != nil {
		logger.ErrorContext(ctx, "failed to consume OTP", "error", err, "otp_id", otp.ID)
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Role, s.cfg.Auth.JWTSecret, s.cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return &domain.AuthResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	}, nil
}

// Login answers the same generic message for a missing account and a wrong
// password.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return nil, domain.Errorf(domain.KindInvalid, "Email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, domain.Errorf(domain.KindUnauthorized, "Invalid credentials")
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, domain.Errorf(domain.KindUnauthorized, "Invalid credentials")
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, user.Role, s.cfg.Auth.JWTSecret, s.cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.AuthResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	}, nil
}

func (s *AuthService) GetMe(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domain.Errorf(domain.KindNotFound, "User not found")
	}
	return user, nil
}

// generateOTP returns a uniformly random 6-digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
