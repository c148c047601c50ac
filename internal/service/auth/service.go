package auth

import (
	"context"
	"time"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/repository"
	"github.com/qline/booking-api/pkg/auth"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/logger"
	"github.com/qline/booking-api/pkg/security"
)

type Service interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
}

type service struct {
	staffRepo repository.StaffRepository
	jwtSvc    auth.JWTService
	hasher    security.PasswordHasher
	logger    *logger.Logger
}

func NewService(staffRepo repository.StaffRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher, logger *logger.Logger) Service {
	return &service{
		staffRepo: staffRepo,
		jwtSvc:    jwtSvc,
		hasher:    hasher,
		logger:    logger,
	}
}

// Login authenticates a staff user by username and password. Unknown
// usernames and wrong passwords return the same error so the response does
// not leak which accounts exist.
func (s *service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.staffRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.logger.Warn("failed login attempt", "username", req.Username)
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwtSvc.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("staff login", "username", user.Username, "role", string(user.Role))
	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}
