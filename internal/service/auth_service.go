package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cargolink/internal/domain"
	"cargolink/internal/email"
	"cargolink/internal/repository"
)

// AuthService orquesta registro, login, refresh y el ciclo de vida de los
// tokens de verificacion y reset. Es el unico componente que escribe el
// registro de credenciales.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	tokens      *TokenService
	emailSender email.Sender
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, tokens *TokenService, emailSender email.Sender) *AuthService {
	return &AuthService{
		logger:      logger,
		users:       users,
		tokens:      tokens,
		emailSender: emailSender,
	}
}

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired token")
	ErrAlreadyVerified        = errors.New("email already verified")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
)

// ValidationError describe input malformado con un mensaje apto para el
// usuario final.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AccountLockedError indica login suprimido por lockout activo.
type AccountLockedError struct {
	LockUntil        time.Time
	MinutesRemaining int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account is locked, try again in %d minutes", e.MinutesRemaining)
}

// FailedLoginError es un password incorrecto por debajo del umbral de lockout.
type FailedLoginError struct {
	AttemptsRemaining int
}

func (e *FailedLoginError) Error() string { return "invalid credentials" }

const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour
	minPasswordLength    = 6
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	UserType string
}

type LoginInput struct {
	Email    string
	Password string
	UserType string
}

type UpdateProfileInput struct {
	Name  string
	Phone string
}

// AuthResult agrupa el usuario y su par de tokens recien emitido.
type AuthResult struct {
	User   domain.User
	Tokens TokenPair
}

// Register crea un usuario sin verificar, emite el par de tokens y deja
// persistido el refresh token. El token de verificacion viaja al colaborador
// de correo; su fallo no aborta el registro.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	if err := validateRegisterInput(input); err != nil {
		return AuthResult{}, err
	}
	emailAddr := normalizeEmail(input.Email)

	// Pre-chequeo best effort: la garantia real es el indice unico.
	if _, err := s.users.GetByEmailAndType(ctx, emailAddr, input.UserType); err == nil {
		return AuthResult{}, repository.ErrDuplicateEmail
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return AuthResult{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	verificationToken, err := s.tokens.GenerateOpaqueToken()
	if err != nil {
		return AuthResult{}, err
	}

	now := time.Now().UTC()
	verificationExpires := now.Add(verificationTokenTTL)
	user := domain.User{
		ID:                       uuid.NewString(),
		Name:                     strings.TrimSpace(input.Name),
		Email:                    emailAddr,
		PasswordHash:             string(hashBytes),
		Phone:                    strings.TrimSpace(input.Phone),
		UserType:                 input.UserType,
		EmailVerificationToken:   verificationToken,
		EmailVerificationExpires: &verificationExpires,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return AuthResult{}, err
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.UserType)
	if err != nil {
		return AuthResult{}, err
	}
	user.RefreshToken = pair.RefreshToken
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return AuthResult{}, err
	}

	s.sendVerification(ctx, user.Email, verificationToken, verificationExpires)

	return AuthResult{User: user, Tokens: pair}, nil
}

// Login verifica credenciales aplicando la politica de lockout. El mensaje
// de error no distingue email inexistente de password incorrecto. El password
// se compara tal cual llego: nunca se recorta whitespace.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" || input.Password == "" || input.UserType == "" {
		return AuthResult{}, validationErrorf("email, password, and user type are required")
	}

	user, err := s.users.GetByEmailAndType(ctx, emailAddr, input.UserType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	now := time.Now().UTC()
	state := lockoutOf(user)
	if state.IsLocked(now) {
		return AuthResult{}, &AccountLockedError{
			LockUntil:        *state.LockUntil,
			MinutesRemaining: state.MinutesRemaining(now),
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		state, remaining := OnFailedAttempt(state, now)
		applyLockout(&user, state)
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return AuthResult{}, err
		}
		if state.IsLocked(now) {
			return AuthResult{}, &AccountLockedError{
				LockUntil:        *state.LockUntil,
				MinutesRemaining: state.MinutesRemaining(now),
			}
		}
		return AuthResult{}, &FailedLoginError{AttemptsRemaining: remaining}
	}

	applyLockout(&user, OnSuccessfulAttempt(state))
	user.LastLogin = &now

	pair, err := s.tokens.GeneratePair(user.ID, user.UserType)
	if err != nil {
		return AuthResult{}, err
	}
	user.RefreshToken = pair.RefreshToken
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{User: user, Tokens: pair}, nil
}

// Refresh rota el par de tokens. Ademas de la firma, el token presentado
// debe coincidir textualmente con el guardado: un login posterior invalida
// cualquier refresh token anterior.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	pair, err := s.tokens.GeneratePair(user.ID, user.UserType)
	if err != nil {
		return TokenPair{}, err
	}
	user.RefreshToken = pair.RefreshToken
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// VerifyEmail consume el token de verificacion. Un solo uso: los campos se
// limpian en la misma escritura que marca el email como verificado.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return validationErrorf("verification token required")
	}

	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	if user.EmailVerificationExpires == nil || time.Now().UTC().After(*user.EmailVerificationExpires) {
		return ErrInvalidOrExpiredToken
	}

	user.IsEmailVerified = true
	user.EmailVerificationToken = ""
	user.EmailVerificationExpires = nil
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

// ResendVerification regenera el token de verificacion para el usuario autenticado.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	token, err := s.tokens.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	expires := now.Add(verificationTokenTTL)
	user.EmailVerificationToken = token
	user.EmailVerificationExpires = &expires
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.sendVerification(ctx, user.Email, token, expires)
	return nil
}

// ForgotPassword genera un token de reset. La respuesta es identica exista o
// no la cuenta, para no filtrar existencia de emails.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr, userType string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || userType == "" {
		return validationErrorf("email and user type are required")
	}

	user, err := s.users.GetByEmailAndType(ctx, emailAddr, userType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := s.tokens.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	expires := now.Add(resetTokenTTL)
	user.PasswordResetToken = token
	user.PasswordResetExpires = &expires
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if s.emailSender != nil {
		if err := s.emailSender.SendPasswordResetToken(ctx, user.Email, token, expires); err != nil {
			s.logger.Warn("send password reset token failed", zap.Error(err), zap.String("email", user.Email))
		}
	}
	return nil
}

// ResetPassword consume el token de reset, rehashea el password y desbloquea
// la cuenta.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return validationErrorf("token and new password are required")
	}
	if len(newPassword) < minPasswordLength {
		return validationErrorf("password must be at least %d characters long", minPasswordLength)
	}

	user, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	if user.PasswordResetExpires == nil || time.Now().UTC().After(*user.PasswordResetExpires) {
		return ErrInvalidOrExpiredToken
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashBytes)
	user.PasswordResetToken = ""
	user.PasswordResetExpires = nil
	applyLockout(&user, OnPasswordReset(lockoutOf(user)))
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

// ChangePassword requiere el password actual del usuario autenticado.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return validationErrorf("current and new password are required")
	}
	if len(newPassword) < minPasswordLength {
		return validationErrorf("new password must be at least %d characters long", minPasswordLength)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCurrentPassword
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashBytes)
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

// Logout invalida la sesion limpiando el refresh token guardado.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	user.RefreshToken = ""
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

// GetProfile devuelve el usuario; los campos secretos nunca se serializan.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile actualiza nombre y telefono; el resto es inmutable.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = name
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		if !validPhone(phone) {
			return domain.User{}, validationErrorf("invalid phone number format")
		}
		user.Phone = phone
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) sendVerification(ctx context.Context, toEmail, token string, expiresAt time.Time) {
	if s.emailSender == nil {
		return
	}
	if err := s.emailSender.SendVerificationToken(ctx, toEmail, token, expiresAt); err != nil {
		s.logger.Warn("send verification token failed", zap.Error(err), zap.String("email", toEmail))
	}
}

func validateRegisterInput(input RegisterInput) error {
	if strings.TrimSpace(input.Name) == "" ||
		strings.TrimSpace(input.Email) == "" ||
		input.Password == "" ||
		strings.TrimSpace(input.Phone) == "" ||
		strings.TrimSpace(input.UserType) == "" {
		return validationErrorf("all fields are required")
	}
	if !emailPattern.MatchString(normalizeEmail(input.Email)) {
		return validationErrorf("invalid email format")
	}
	// El password se mide tal cual: el hash tambien se hace sobre el valor crudo.
	if len(input.Password) < minPasswordLength {
		return validationErrorf("password must be at least %d characters long", minPasswordLength)
	}
	if !validPhone(input.Phone) {
		return validationErrorf("invalid phone number format")
	}
	if !domain.ValidUserType(input.UserType) {
		return validationErrorf("user type must be entrepreneur or delivery")
	}
	return nil
}

func validPhone(phone string) bool {
	stripped := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(phone))
	return phonePattern.MatchString(stripped)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func lockoutOf(user domain.User) LockoutState {
	return LockoutState{LoginAttempts: user.LoginAttempts, LockUntil: user.LockUntil}
}

func applyLockout(user *domain.User, state LockoutState) {
	user.LoginAttempts = state.LoginAttempts
	user.LockUntil = state.LockUntil
}
