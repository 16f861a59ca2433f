package user

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/platform/storage"
	"bontroc_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the user domain API.
type Service interface {
	shared.AccountLookup
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	FindOrCreateFromIdentity(ctx context.Context, identity ExternalIdentity) (*User, bool, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*User, error)
	UploadAvatar(ctx context.Context, id uuid.UUID, file *multipart.FileHeader) (*User, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, filter ListFilter, page, pageSize int) ([]User, *common.Pagination, error)
	SetRole(ctx context.Context, actorID, targetID uuid.UUID, role string) (*User, error)
	SetVerification(ctx context.Context, targetID uuid.UUID, status VerificationStatus) (*User, error)
}

type ServiceImplementation struct {
	repo   Repository
	store  storage.ObjectStore
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

var _ Service = (*ServiceImplementation)(nil)

func NewService(repo Repository, store storage.ObjectStore, cfg *config.Config, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		store:  store,
		cfg:    cfg,
		logger: logger.Named("UserService"),
		now:    time.Now,
	}
}

// Register creates an email/password account.
func (s *ServiceImplementation) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	_, err := s.repo.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, common.ErrConflict.WithDetails("User with this email already exists.")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user by email: %w", err)
	}

	hashedPassword, err := common.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := req.Email
	now := s.now()
	u := &User{
		Email:              &email,
		PasswordHash:       &hashedPassword,
		AuthProvider:       "email",
		DisplayName:        strings.TrimSpace(req.DisplayName),
		Role:               common.RoleUser,
		Status:             StatusActive,
		VerificationStatus: VerificationUnverified,
		LastLoginAt:        &now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("Failed to create user in repository", zap.Error(err), zap.String("email", req.Email))
		return nil, err
	}

	s.logger.Info("User registered", zap.String("userID", u.ID.String()))
	return u, nil
}

// Authenticate checks email/password credentials. Banned and deleted
// accounts are refused even with the right password.
func (s *ServiceImplementation) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
		}
		s.logger.Error("Error finding user by email during login", zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Login failed due to an internal error.")
	}

	if u.PasswordHash == nil || *u.PasswordHash == "" {
		return nil, common.ErrUnauthorized.WithDetails("This account signs in with a social provider.")
	}
	if !common.CheckPasswordHash(password, *u.PasswordHash) {
		s.logger.Warn("Invalid password attempt", zap.String("userID", u.ID.String()))
		return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
	}
	if !u.CanSignIn() {
		return nil, common.ErrForbidden.WithDetails("This account is not allowed to sign in.")
	}

	s.touchLogin(ctx, u)
	return u, nil
}

// FindOrCreateFromIdentity resolves a social sign-in to an account: by
// provider UID first, then by verified email (linking the identity), and
// finally by creating a new account. The bool reports creation.
func (s *ServiceImplementation) FindOrCreateFromIdentity(ctx context.Context, identity ExternalIdentity) (*User, bool, error) {
	if identity.UID == "" {
		return nil, false, common.ErrBadRequest.WithDetails("Identity has no subject.")
	}

	u, err := s.repo.FindByFirebaseUID(ctx, identity.UID)
	switch {
	case err == nil:
		if !u.CanSignIn() {
			return nil, false, common.ErrForbidden.WithDetails("This account is not allowed to sign in.")
		}
		s.touchLogin(ctx, u)
		return u, false, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, false, err
	}

	if identity.Email != "" && identity.EmailVerified {
		u, err = s.repo.FindByEmail(ctx, identity.Email)
		switch {
		case err == nil:
			if !u.CanSignIn() {
				return nil, false, common.ErrForbidden.WithDetails("This account is not allowed to sign in.")
			}
			if u.FirebaseUID != nil && *u.FirebaseUID != identity.UID {
				return nil, false, common.ErrConflict.WithDetails("This email is already linked to another social account.")
			}
			uid := identity.UID
			u.FirebaseUID = &uid
			if u.AvatarURL == nil && identity.PictureURL != "" {
				pic := identity.PictureURL
				u.AvatarURL = &pic
			}
			now := s.now()
			u.LastLoginAt = &now
			if err := s.repo.Update(ctx, u); err != nil {
				s.logger.Error("Failed to link social identity", zap.Error(err), zap.String("userID", u.ID.String()))
				return nil, false, err
			}
			s.logger.Info("Social identity linked to existing account", zap.String("userID", u.ID.String()), zap.String("provider", identity.Provider))
			return u, false, nil
		case !errors.Is(err, common.ErrNotFound):
			return nil, false, err
		}
	}

	uid := identity.UID
	now := s.now()
	provider := identity.Provider
	if provider == "" {
		provider = "firebase"
	}
	displayName := strings.TrimSpace(identity.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName(identity.Email)
	}
	u = &User{
		FirebaseUID:        &uid,
		AuthProvider:       provider,
		DisplayName:        displayName,
		Role:               common.RoleUser,
		Status:             StatusActive,
		VerificationStatus: VerificationUnverified,
		LastLoginAt:        &now,
	}
	if identity.Email != "" {
		email := identity.Email
		u.Email = &email
	}
	if identity.PictureURL != "" {
		pic := identity.PictureURL
		u.AvatarURL = &pic
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("Failed to create user from social identity", zap.Error(err))
		return nil, false, err
	}
	s.logger.Info("User created from social identity", zap.String("userID", u.ID.String()), zap.String("provider", provider))
	return u, true, nil
}

func defaultDisplayName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return "BonTroc member"
}

func (s *ServiceImplementation) touchLogin(ctx context.Context, u *User) {
	now := s.now()
	u.LastLoginAt = &now
	if err := s.repo.UpdateFields(ctx, u.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		s.logger.Warn("Failed to update last login time", zap.Error(err), zap.String("userID", u.ID.String()))
	}
}

func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("Error finding user by ID", zap.Error(err), zap.String("userID", id.String()))
		}
		return nil, err
	}
	return u, nil
}

// GetAccountState implements shared.AccountLookup.
func (s *ServiceImplementation) GetAccountState(ctx context.Context, id uuid.UUID) (*shared.AccountState, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &shared.AccountState{Role: u.Role, Status: string(u.Status)}, nil
}

func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*User, error) {
	fields := map[string]interface{}{}
	if req.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if req.City != nil {
		fields["city"] = strings.TrimSpace(*req.City)
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.now()
		if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.repo.FindByID(ctx, id)
}

// UploadAvatar stores the picture in the profile-media bucket and records its URL.
func (s *ServiceImplementation) UploadAvatar(ctx context.Context, id uuid.UUID, file *multipart.FileHeader) (*User, error) {
	obj, err := storage.UploadFile(ctx, s.store, storage.BucketProfileMedia, id, file, storage.ImageTypes, s.cfg.MaxUploadSizeMB<<20)
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Avatar upload failed", zap.Error(err), zap.String("userID", id.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not store the picture.")
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"avatar_url": obj.URL, "updated_at": s.now()}); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// DeleteAccount soft-deletes: the row stays for contracts and reviews, but
// credentials and contact details are dropped.
func (s *ServiceImplementation) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	err := s.repo.UpdateFields(ctx, id, map[string]interface{}{
		"status":        StatusDeleted,
		"deleted_at":    now,
		"email":         nil,
		"password_hash": nil,
		"firebase_uid":  nil,
		"updated_at":    now,
	})
	if err != nil {
		return err
	}
	s.logger.Info("User account deleted", zap.String("userID", id.String()))
	return nil
}

func (s *ServiceImplementation) ListUsers(ctx context.Context, filter ListFilter, page, pageSize int) ([]User, *common.Pagination, error) {
	return s.repo.List(ctx, filter, page, pageSize)
}

// SetRole changes an account's role; banning is role=banned. Staff cannot
// change their own role.
func (s *ServiceImplementation) SetRole(ctx context.Context, actorID, targetID uuid.UUID, role string) (*User, error) {
	if actorID == targetID {
		return nil, common.ErrForbidden.WithDetails("You cannot change your own role.")
	}
	switch role {
	case common.RoleUser, common.RoleModerator, common.RoleAdmin, common.RoleBanned:
	default:
		return nil, common.ErrBadRequest.WithDetails("Unknown role.")
	}
	if err := s.repo.UpdateFields(ctx, targetID, map[string]interface{}{"role": role, "updated_at": s.now()}); err != nil {
		return nil, err
	}
	s.logger.Info("User role changed", zap.String("actorID", actorID.String()), zap.String("targetID", targetID.String()), zap.String("role", role))
	return s.repo.FindByID(ctx, targetID)
}

func (s *ServiceImplementation) SetVerification(ctx context.Context, targetID uuid.UUID, status VerificationStatus) (*User, error) {
	if err := s.repo.UpdateFields(ctx, targetID, map[string]interface{}{"verification_status": status, "updated_at": s.now()}); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, targetID)
}
