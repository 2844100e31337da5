package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMatchNotFound      = errors.New("match not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrRegistrationStillOpen = errors.New("tournament registration is still open")
	ErrMatchNotContested     = errors.New("match is not contested")

	// Ошибки конфигурации турнира: фатальны, не повторяются
	ErrConfiguration         = errors.New("tournament configuration error")
	ErrStageAlreadyGenerated = errors.New("tournament stage already generated")

	// Ошибки конкурентного доступа
	ErrConcurrencyConflict = errors.New("concurrent modification, try again")

	// Ошибки авторизации
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Внешние сервисы
	ErrEvidenceStorageDisabled = errors.New("evidence storage is not configured")
)
