package domain

import "time"

// Roles soportados por la plataforma.
const (
	UserTypeEntrepreneur = "entrepreneur"
	UserTypeDelivery     = "delivery"
)

// User es el registro de credenciales: hash de password, tokens de
// verificacion/reset, refresh token vigente y contadores de lockout.
// Los campos sensibles nunca se serializan.
type User struct {
	ID                       string     `json:"id"`
	Name                     string     `json:"name"`
	Email                    string     `json:"email"`
	PasswordHash             string     `json:"-"`
	Phone                    string     `json:"phone"`
	UserType                 string     `json:"userType"`
	IsEmailVerified          bool       `json:"isEmailVerified"`
	EmailVerificationToken   string     `json:"-"`
	EmailVerificationExpires *time.Time `json:"-"`
	PasswordResetToken       string     `json:"-"`
	PasswordResetExpires     *time.Time `json:"-"`
	RefreshToken             string     `json:"-"`
	LoginAttempts            int        `json:"-"`
	LockUntil                *time.Time `json:"-"`
	LastLogin                *time.Time `json:"lastLogin,omitempty"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// ValidUserType valida el rol recibido en requests.
func ValidUserType(userType string) bool {
	return userType == UserTypeEntrepreneur || userType == UserTypeDelivery
}
