// internal/services/users/service.go
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"
	"jelita/internal/models"
)

// badCredentials hides whether the username or the password was wrong.
func badCredentials() error {
	return apperrors.NewAuthenticationError("Invalid credentials")
}

type Service struct {
	cfg     *Config
	store   Store
	tokens  *auth.TokenManager
	revoked Revocations
	logger  logger.Logger
}

func NewService(cfg *Config, store Store, tokens *auth.TokenManager, revoked Revocations, log logger.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		tokens:  tokens,
		revoked: revoked,
		logger:  log.WithFields(map[string]interface{}{"service": ServiceName}),
	}
}

func (s *Service) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *Service) storeError(op string, err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return apperrors.NewResourceNotFoundError("User", "User not found")
	case errors.Is(err, ErrUsernameTaken):
		return apperrors.NewValidationError("username already exists")
	default:
		return apperrors.NewQueryExecutionFailedError(op, err)
	}
}

func principalOf(u *models.User) (auth.Principal, error) {
	role, err := auth.ParseRole(u.Role)
	if err != nil {
		return auth.Principal{}, err
	}
	p := auth.Principal{UserID: u.ID, Role: role}
	if u.OPDID != nil {
		p.OfficeID = *u.OPDID
	}
	return p, nil
}

func (s *Service) Signin(ctx context.Context, req SigninRequest) (*models.Session, error) {
	u, err := s.store.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, ErrUserNotFound) {
		s.log(ctx).Warn("Signin rejected", map[string]interface{}{"username": req.Username, "reason": "unknown user"})
		return nil, badCredentials()
	}
	if err != nil {
		return nil, s.storeError("get user", err)
	}
	if !auth.ComparePassword(u.PasswordHash, req.Password) {
		s.log(ctx).Warn("Signin rejected", map[string]interface{}{"userId": u.ID, "reason": "bad password"})
		return nil, badCredentials()
	}

	p, err := principalOf(u)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token, expiresAt, err := s.tokens.Issue(p)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.log(ctx).Info("Signin successful", map[string]interface{}{"userId": u.ID, "role": u.Role})
	return &models.Session{
		ID:          u.ID,
		Username:    u.Username,
		NamaLengkap: u.NamaLengkap,
		Role:        string(p.Role),
		OPDID:       u.OPDID,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// Validate reports the caller's claims unless the token was signed out.
func (s *Service) Validate(ctx context.Context, p *auth.Principal, token string) (*ValidateResult, error) {
	revoked, err := s.revoked.Revoked(ctx, token)
	if err != nil {
		return nil, apperrors.NewDownstreamError("revocations", err)
	}
	if revoked {
		return nil, apperrors.NewAuthenticationError("token has been revoked")
	}
	return &ValidateResult{Valid: true, User: p}, nil
}

func (s *Service) Signout(ctx context.Context, p *auth.Principal, token string) (*SignoutResult, error) {
	if err := s.revoked.Revoke(ctx, token, s.cfg.TokenTTL); err != nil {
		return nil, apperrors.NewDownstreamError("revocations", err)
	}
	s.log(ctx).Info("Signout successful", map[string]interface{}{"userId": p.UserID})
	return &SignoutResult{TokenRevoked: true, LogoutAt: time.Now().UTC()}, nil
}

func (s *Service) CreateUser(ctx context.Context, p *auth.Principal, req CreateUserRequest) (*models.User, error) {
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if role == auth.RoleOffice && req.OPDID == nil {
		return nil, apperrors.NewValidationError("opd_id is required for OPD users")
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	u := &models.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		NamaLengkap:  req.NamaLengkap,
		Role:         string(role),
		OPDID:        req.OPDID,
	}
	if req.Email != "" {
		u.Email = &req.Email
	}

	created, err := s.store.Create(ctx, u)
	if err != nil {
		return nil, s.storeError("create user", err)
	}
	s.log(ctx).Info("User created", map[string]interface{}{
		"userId":    created.ID,
		"role":      created.Role,
		"createdBy": p.UserID,
	})
	return created, nil
}

func (s *Service) GetRole(ctx context.Context, id int64) (*RoleResult, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get user", err)
	}
	res := &RoleResult{ID: u.ID, Username: u.Username, Role: u.Role, OPDID: u.OPDID, Access: []auth.Capability{}}
	if role, err := auth.ParseRole(u.Role); err == nil {
		res.Role = string(role)
		res.Access = auth.CapabilitiesOf(role)
	}
	return res, nil
}
