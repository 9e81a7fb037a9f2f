package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPyramidNameRequired   = errors.New("pyramid name is required")
	ErrPyramidInvalidRows    = errors.New("pyramid row count must be at least 1")
	ErrPyramidRowsInUse      = errors.New("row count cannot drop below an occupied row")
	ErrPyramidInactive       = errors.New("pyramid is not active")
	ErrSlotOutOfGrid         = errors.New("slot is outside the pyramid grid")
	ErrChallengeNotAllowed   = errors.New("challenge is not allowed")
	ErrNoTeam                = errors.New("user does not belong to a team")
	ErrInvalidWinner         = errors.New("winner must be one of the match teams")
	ErrInvalidStatus         = errors.New("match status does not allow this action")
	ErrRejectionLimitReached = errors.New("weekly rejection limit reached")
	ErrDefenderBusy          = errors.New("defender already has an accepted challenge")
	ErrTeamSamePlayer        = errors.New("a team needs two different players")
	ErrEvidenceTooLarge      = errors.New("evidence file is too large")
	ErrEvidenceType          = errors.New("evidence must be an image or a PDF")
	ErrEvidenceDisabled      = errors.New("evidence storage is not configured")

	// Ошибки конфликтов
	ErrSlotOccupied          = errors.New("slot is already occupied")
	ErrTeamAlreadyPositioned = errors.New("team is already positioned in this pyramid")
	ErrPlayerAlreadyInTeam   = errors.New("player already belongs to a team")
	ErrConcurrentUpdate      = errors.New("resource was modified concurrently")

	// Ошибки аутентификации и авторизации
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrPyramidNotFound      = errors.New("pyramid not found")
	ErrPositionNotFound     = errors.New("position not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
