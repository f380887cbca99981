package service

import (
	"math"
	"time"
)

const (
	maxLoginAttempts = 5
	lockDuration     = 30 * time.Minute
)

// LockoutState es la porcion del registro de usuario que gobierna el
// bloqueo por fuerza bruta. Las transiciones son puras: el caller persiste.
type LockoutState struct {
	LoginAttempts int
	LockUntil     *time.Time
}

// IsLocked es un predicado derivado: bloqueado sii LockUntil esta en el futuro.
func (s LockoutState) IsLocked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// MinutesRemaining devuelve los minutos (redondeados hacia arriba) hasta que
// expire el bloqueo. Cero si no hay bloqueo activo.
func (s LockoutState) MinutesRemaining(now time.Time) int {
	if !s.IsLocked(now) {
		return 0
	}
	return int(math.Ceil(s.LockUntil.Sub(now).Minutes()))
}

// OnFailedAttempt incrementa el contador; al llegar al umbral fija el
// bloqueo. Devuelve los intentos restantes para el mensaje al usuario.
func OnFailedAttempt(s LockoutState, now time.Time) (LockoutState, int) {
	s.LoginAttempts++
	if s.LoginAttempts >= maxLoginAttempts {
		until := now.Add(lockDuration)
		s.LockUntil = &until
	}
	remaining := maxLoginAttempts - s.LoginAttempts
	if remaining < 0 {
		remaining = 0
	}
	return s, remaining
}

// OnSuccessfulAttempt limpia contadores tras un login correcto.
func OnSuccessfulAttempt(s LockoutState) LockoutState {
	s.LoginAttempts = 0
	s.LockUntil = nil
	return s
}

// OnPasswordReset desbloquea la cuenta: completar un reset de password
// debe limpiar el lockout aunque nunca haya habido login exitoso.
func OnPasswordReset(s LockoutState) LockoutState {
	s.LoginAttempts = 0
	s.LockUntil = nil
	return s
}
