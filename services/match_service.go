package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/itbasis/go-clock"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/notify"
	"github.com/Dosada05/pyramid-ladder/repositories"
	"github.com/Dosada05/pyramid-ladder/storage"
)

// MaxEvidenceBytes limits the size of an uploaded score sheet.
const MaxEvidenceBytes = 10 << 20

var evidenceTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

type MatchService interface {
	CreateMatch(ctx context.Context, actor Actor, pyramidID, defenderTeamID int) (*models.Match, error)
	AcceptMatch(ctx context.Context, actor Actor, matchID int) (*models.Match, error)
	// RejectMatch refuses a challenge. A team that already rejected RejectionLimit
	// challenges this week without playing gets ErrRejectionLimitReached unless
	// override is set.
	RejectMatch(ctx context.Context, actor Actor, matchID int, override bool) (*models.Match, error)
	CancelMatch(ctx context.Context, actor Actor, matchID int) (*models.Match, error)
	CompleteMatch(ctx context.Context, actor Actor, matchID, winnerTeamID int) (*models.Match, error)
	UploadEvidence(ctx context.Context, actor Actor, matchID int, file io.Reader) (*models.Match, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListMatches(ctx context.Context, pyramidID int, statuses ...models.MatchStatus) ([]*models.Match, error)
	ChallengeableSlots(ctx context.Context, actor Actor, pyramidID int) ([]models.Slot, error)
}

type matchService struct {
	tx           repositories.Transactor
	pyramidRepo  repositories.PyramidRepository
	positionRepo repositories.PositionRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	historyRepo  repositories.HistoryRepository
	uploader     storage.FileUploader
	notifier     notify.Notifier
	clock        clock.Clock
	location     *time.Location
	logger       *slog.Logger
}

// NewMatchService builds the match service. uploader may be nil when evidence
// storage is not configured.
func NewMatchService(
	tx repositories.Transactor,
	pyramidRepo repositories.PyramidRepository,
	positionRepo repositories.PositionRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	historyRepo repositories.HistoryRepository,
	uploader storage.FileUploader,
	notifier notify.Notifier,
	clock clock.Clock,
	location *time.Location,
	logger *slog.Logger,
) MatchService {
	if location == nil {
		location = time.Local
	}
	return &matchService{
		tx:           tx,
		pyramidRepo:  pyramidRepo,
		positionRepo: positionRepo,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		historyRepo:  historyRepo,
		uploader:     uploader,
		notifier:     notifier,
		clock:        clock,
		location:     location,
		logger:       logger,
	}
}

func (s *matchService) now() time.Time {
	return s.clock.Now().In(s.location)
}

// load returns the match with both teams attached.
func (s *matchService) load(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID, false)
	if err != nil {
		return nil, handleRepositoryError(err, "get match %d", matchID)
	}
	if err := attachTeams(ctx, s.teamRepo, m); err != nil {
		return nil, handleRepositoryError(err, "load teams of match %d", matchID)
	}
	if m.Challenger == nil || m.Defender == nil {
		return nil, fmt.Errorf("%w: teams of match %d", ErrTeamNotFound, matchID)
	}
	s.setEvidenceURL(m)
	return m, nil
}

func (s *matchService) setEvidenceURL(m *models.Match) {
	if s.uploader != nil && m.EvidenceKey != nil {
		url := s.uploader.GetPublicURL(*m.EvidenceKey)
		m.EvidenceURL = &url
	}
}

func (s *matchService) pyramid(ctx context.Context, pyramidID int) *models.Pyramid {
	pyramid, err := s.pyramidRepo.GetByID(ctx, nil, pyramidID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load pyramid for notifications", slog.Int("pyramid_id", pyramidID), slog.Any("error", err))
		return &models.Pyramid{ID: pyramidID}
	}
	return pyramid
}

func canDefend(actor Actor, m *models.Match) bool {
	return actor.IsAdmin() || m.Defender.HasPlayer(actor.UserID)
}

func isParticipant(actor Actor, m *models.Match) bool {
	return actor.IsAdmin() || m.Challenger.HasPlayer(actor.UserID) || m.Defender.HasPlayer(actor.UserID)
}

// transition locks the match, checks the move to next and applies it.
func (s *matchService) transition(ctx context.Context, tx repositories.SQLExecutor, matchID int, next models.MatchStatus, at time.Time) (*models.Match, error) {
	current, err := s.matchRepo.GetByID(ctx, tx, matchID, true)
	if err != nil {
		return nil, err
	}
	if err := ladder.Transition(current.Status, next); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStatus, err)
	}
	if err := s.matchRepo.UpdateStatus(ctx, tx, matchID, current.Status, next, at); err != nil {
		return nil, err
	}
	current.Status = next
	current.StatusChangedAt = at
	return current, nil
}

func (s *matchService) CreateMatch(ctx context.Context, actor Actor, pyramidID, defenderTeamID int) (*models.Match, error) {
	team, err := s.teamRepo.GetByPlayer(ctx, nil, actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrNoTeam
		}
		return nil, handleRepositoryError(err, "get team of user %d", actor.UserID)
	}
	pyramid, err := s.pyramidRepo.GetByID(ctx, nil, pyramidID)
	if err != nil {
		return nil, handleRepositoryError(err, "get pyramid %d", pyramidID)
	}
	if !pyramid.Active {
		return nil, ErrPyramidInactive
	}

	match := &models.Match{
		PyramidID:        pyramidID,
		ChallengerTeamID: team.ID,
		DefenderTeamID:   defenderTeamID,
		Status:           models.MatchStatusPending,
	}
	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		if _, err := s.positionRepo.LockByTeams(ctx, tx, pyramidID, team.ID, defenderTeamID); err != nil {
			return err
		}
		positions, err := s.positionRepo.ListByPyramid(ctx, tx, pyramidID)
		if err != nil {
			return err
		}
		open, err := s.matchRepo.ListByPyramid(ctx, tx, pyramidID, models.OpenMatchStatuses...)
		if err != nil {
			return err
		}

		grid := ladder.NewGrid(positions)
		target, ok := grid.SlotOf(defenderTeamID)
		if !ok {
			return fmt.Errorf("%w: %w", ErrChallengeNotAllowed, ladder.ErrEmptySlot)
		}
		if err := ladder.CheckChallenge(grid, open, team.ID, target); err != nil {
			return fmt.Errorf("%w: %w", ErrChallengeNotAllowed, err)
		}
		return s.matchRepo.Create(ctx, tx, match)
	})
	if txErr != nil {
		return nil, handleRepositoryError(txErr, "challenge team %d in pyramid %d", defenderTeamID, pyramidID)
	}

	s.logger.InfoContext(ctx, "Challenge created",
		slog.Int("match_id", match.ID), slog.Int("pyramid_id", pyramidID),
		slog.Int("challenger_team_id", team.ID), slog.Int("defender_team_id", defenderTeamID))

	if err := attachTeams(ctx, s.teamRepo, match); err != nil {
		s.logger.WarnContext(ctx, "Failed to load match teams", slog.Int("match_id", match.ID), slog.Any("error", err))
		return match, nil
	}
	dispatch(ctx, s.notifier, s.logger, matchEvent(models.NotificationChallengeIssued, pyramid, match, match.Defender))
	return match, nil
}

func (s *matchService) AcceptMatch(ctx context.Context, actor Actor, matchID int) (*models.Match, error) {
	m, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !canDefend(actor, m) {
		return nil, ErrForbiddenOperation
	}

	var cancelled []*models.Match
	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		now := s.now()
		updated, err := s.transition(ctx, tx, matchID, models.MatchStatusAccepted, now)
		if err != nil {
			return err
		}
		// Locking the defender's position serializes accepts against the same team.
		if _, err := s.positionRepo.LockByTeams(ctx, tx, m.PyramidID, m.DefenderTeamID); err != nil {
			return err
		}
		busy, err := s.acceptedAgainst(ctx, tx, m)
		if err != nil {
			return err
		}
		if busy != nil {
			return fmt.Errorf("%w: team %d must play match %d first", ErrDefenderBusy, m.DefenderTeamID, busy.ID)
		}
		m.Status, m.StatusChangedAt = updated.Status, updated.StatusChangedAt

		others, err := s.matchRepo.ListPendingAgainst(ctx, tx, m.PyramidID, m.DefenderTeamID, m.ID)
		if err != nil {
			return err
		}
		for _, other := range others {
			if other.ChallengerTeamID == m.ChallengerTeamID {
				continue
			}
			if err := s.matchRepo.UpdateStatus(ctx, tx, other.ID, models.MatchStatusPending, models.MatchStatusCancelled, now); err != nil {
				return err
			}
			other.Status, other.StatusChangedAt = models.MatchStatusCancelled, now
			cancelled = append(cancelled, other)
		}
		return nil
	})
	if txErr != nil {
		return nil, handleRepositoryError(txErr, "accept match %d", matchID)
	}

	pyramid := s.pyramid(ctx, m.PyramidID)
	events := []notify.Event{matchEvent(models.NotificationChallengeAccepted, pyramid, m, m.Challenger, m.Defender)}
	if len(cancelled) > 0 {
		if err := attachTeams(ctx, s.teamRepo, cancelled...); err != nil {
			s.logger.WarnContext(ctx, "Failed to load teams of cancelled matches", slog.Int("match_id", m.ID), slog.Any("error", err))
		} else {
			reason := fmt.Sprintf("%s aceptó el reto de %s", ladder.TeamName(m.Defender), ladder.TeamName(m.Challenger))
			for _, c := range cancelled {
				e := matchEvent(models.NotificationChallengeCancelled, pyramid, c, c.Challenger)
				e.Context = reason
				events = append(events, e)
			}
		}
		s.logger.InfoContext(ctx, "Pending challenges cancelled on accept",
			slog.Int("match_id", m.ID), slog.Int("cancelled", len(cancelled)))
	}
	dispatch(ctx, s.notifier, s.logger, events...)
	return m, nil
}

// acceptedAgainst returns another accepted match the defender of m still has to play.
func (s *matchService) acceptedAgainst(ctx context.Context, tx repositories.SQLExecutor, m *models.Match) (*models.Match, error) {
	accepted, err := s.matchRepo.ListByPyramid(ctx, tx, m.PyramidID, models.MatchStatusAccepted)
	if err != nil {
		return nil, err
	}
	for _, other := range accepted {
		if other.DefenderTeamID == m.DefenderTeamID && other.ID != m.ID {
			return other, nil
		}
	}
	return nil, nil
}

func (s *matchService) RejectMatch(ctx context.Context, actor Actor, matchID int, override bool) (*models.Match, error) {
	m, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !canDefend(actor, m) {
		return nil, ErrForbiddenOperation
	}

	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		current, err := s.matchRepo.GetByID(ctx, tx, matchID, true)
		if err != nil {
			return err
		}
		if err := ladder.Transition(current.Status, models.MatchStatusRejected); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidStatus, err)
		}

		now := s.now()
		weekStart, _ := ladder.WeekWindow(now)
		rejected, err := s.matchRepo.CountRejectedBy(ctx, tx, m.DefenderTeamID, weekStart)
		if err != nil {
			return err
		}
		played, err := s.matchRepo.CountPlayedBy(ctx, tx, m.DefenderTeamID, weekStart)
		if err != nil {
			return err
		}
		if ladder.RejectionBlocked(rejected, played, override) {
			return fmt.Errorf("%w: %d rejections and no match played since %s",
				ErrRejectionLimitReached, rejected, weekStart.Format(time.DateOnly))
		}

		if err := s.matchRepo.UpdateStatus(ctx, tx, matchID, current.Status, models.MatchStatusRejected, now); err != nil {
			return err
		}
		m.Status, m.StatusChangedAt = models.MatchStatusRejected, now
		return nil
	})
	if txErr != nil {
		return nil, handleRepositoryError(txErr, "reject match %d", matchID)
	}

	if override {
		s.logger.InfoContext(ctx, "Challenge rejected with override", slog.Int("match_id", m.ID), slog.Int("user_id", actor.UserID))
	}
	teams, err := s.teamRepo.ListPositioned(ctx, nil, m.PyramidID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load pyramid teams for notifications", slog.Int("pyramid_id", m.PyramidID), slog.Any("error", err))
		teams = []*models.Team{m.Challenger, m.Defender}
	}
	dispatch(ctx, s.notifier, s.logger, matchEvent(models.NotificationChallengeRejected, s.pyramid(ctx, m.PyramidID), m, teams...))
	return m, nil
}

func (s *matchService) CancelMatch(ctx context.Context, actor Actor, matchID int) (*models.Match, error) {
	m, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(actor, m) {
		return nil, ErrForbiddenOperation
	}
	if m.Status == models.MatchStatusCancelled {
		return m, nil
	}

	changed := false
	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		current, err := s.matchRepo.GetByID(ctx, tx, matchID, true)
		if err != nil {
			return err
		}
		if current.Status == models.MatchStatusCancelled {
			return nil
		}
		updated, err := s.transition(ctx, tx, matchID, models.MatchStatusCancelled, s.now())
		if err != nil {
			return err
		}
		m.Status, m.StatusChangedAt = updated.Status, updated.StatusChangedAt
		changed = true
		return nil
	})
	if txErr != nil {
		return nil, handleRepositoryError(txErr, "cancel match %d", matchID)
	}

	if changed {
		dispatch(ctx, s.notifier, s.logger, matchEvent(models.NotificationChallengeCancelled, s.pyramid(ctx, m.PyramidID), m, m.Challenger, m.Defender))
	} else {
		m.Status = models.MatchStatusCancelled
	}
	return m, nil
}

func (s *matchService) CompleteMatch(ctx context.Context, actor Actor, matchID, winnerTeamID int) (*models.Match, error) {
	m, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(actor, m) {
		return nil, ErrForbiddenOperation
	}
	if !m.Involves(winnerTeamID) {
		return nil, ErrInvalidWinner
	}

	var resolution ladder.Resolution
	txErr := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		current, err := s.matchRepo.GetByID(ctx, tx, matchID, true)
		if err != nil {
			return err
		}
		if err := ladder.Transition(current.Status, models.MatchStatusPlayed); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidStatus, err)
		}

		locked, err := s.positionRepo.LockByTeams(ctx, tx, current.PyramidID, current.ChallengerTeamID, current.DefenderTeamID)
		if err != nil {
			return err
		}
		var challengerPos, defenderPos *models.Position
		for _, p := range locked {
			switch p.TeamID {
			case current.ChallengerTeamID:
				challengerPos = p
			case current.DefenderTeamID:
				defenderPos = p
			}
		}
		if challengerPos == nil || defenderPos == nil {
			return fmt.Errorf("%w: both teams must hold a position in pyramid %d", ErrPositionNotFound, current.PyramidID)
		}

		now := s.now()
		resolution = ladder.Resolve(challengerPos.Slot(), defenderPos.Slot(), winnerTeamID == current.ChallengerTeamID)
		if err := s.matchRepo.Complete(ctx, tx, matchID, winnerTeamID, now); err != nil {
			return err
		}
		if err := s.teamRepo.RecordResult(ctx, tx, current.ChallengerTeamID, resolution.Challenger); err != nil {
			return err
		}
		if err := s.teamRepo.RecordResult(ctx, tx, current.DefenderTeamID, resolution.Defender); err != nil {
			return err
		}
		if err := s.positionRepo.RecordResult(ctx, tx, challengerPos.ID, resolution.Challenger); err != nil {
			return err
		}
		if err := s.positionRepo.RecordResult(ctx, tx, defenderPos.ID, resolution.Defender); err != nil {
			return err
		}
		if !resolution.Swap {
			return nil
		}

		if err := s.positionRepo.Exchange(ctx, tx, challengerPos.ID, defenderPos.ID); err != nil {
			return err
		}
		entry := &models.PositionHistory{
			PyramidID:      &current.PyramidID,
			MatchID:        &current.ID,
			TeamID:         &current.ChallengerTeamID,
			AffectedTeamID: &current.DefenderTeamID,
			EffectiveAt:    now,
		}
		entry.SetOld(challengerPos.Slot())
		entry.SetNew(resolution.ChallengerNew)
		entry.SetAffectedOld(defenderPos.Slot())
		entry.SetAffectedNew(resolution.DefenderNew)
		return s.historyRepo.Append(ctx, tx, entry)
	})
	if txErr != nil {
		return nil, handleRepositoryError(txErr, "complete match %d", matchID)
	}

	completed, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Match completed",
		slog.Int("match_id", matchID), slog.Int("winner_team_id", winnerTeamID), slog.Bool("swapped", resolution.Swap))
	dispatch(ctx, s.notifier, s.logger,
		matchEvent(models.NotificationMatchPlayed, s.pyramid(ctx, completed.PyramidID), completed, completed.Challenger, completed.Defender))
	return completed, nil
}

func (s *matchService) UploadEvidence(ctx context.Context, actor Actor, matchID int, file io.Reader) (*models.Match, error) {
	if s.uploader == nil {
		return nil, ErrEvidenceDisabled
	}
	m, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(actor, m) {
		return nil, ErrForbiddenOperation
	}
	if m.Status != models.MatchStatusAccepted && m.Status != models.MatchStatusPlayed {
		return nil, fmt.Errorf("%w: evidence needs an accepted or played match, got %s", ErrInvalidStatus, m.Status)
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxEvidenceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}
	if len(data) > MaxEvidenceBytes {
		return nil, ErrEvidenceTooLarge
	}
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), evidenceTypes...) {
		return nil, fmt.Errorf("%w: got %s", ErrEvidenceType, mtype.String())
	}

	key := storage.EvidenceKey(m.PyramidID, m.ID, mtype.Extension())
	if _, err := s.uploader.Upload(ctx, key, mtype.String(), bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("upload evidence for match %d: %w", matchID, err)
	}
	if err := s.matchRepo.SetEvidence(ctx, nil, m.ID, key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to delete orphaned evidence", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err, "save evidence of match %d", matchID)
	}

	if m.EvidenceKey != nil {
		if err := s.uploader.Delete(ctx, *m.EvidenceKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete previous evidence", slog.String("key", *m.EvidenceKey), slog.Any("error", err))
		}
	}
	m.EvidenceKey = &key
	s.setEvidenceURL(m)
	return m, nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	return s.load(ctx, matchID)
}

func (s *matchService) ListMatches(ctx context.Context, pyramidID int, statuses ...models.MatchStatus) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByPyramid(ctx, nil, pyramidID, statuses...)
	if err != nil {
		return nil, handleRepositoryError(err, "list matches of pyramid %d", pyramidID)
	}
	if err := attachTeams(ctx, s.teamRepo, matches...); err != nil {
		return nil, handleRepositoryError(err, "load teams of pyramid %d matches", pyramidID)
	}
	for _, m := range matches {
		s.setEvidenceURL(m)
	}
	return matches, nil
}

func (s *matchService) ChallengeableSlots(ctx context.Context, actor Actor, pyramidID int) ([]models.Slot, error) {
	team, err := s.teamRepo.GetByPlayer(ctx, nil, actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return []models.Slot{}, nil
		}
		return nil, handleRepositoryError(err, "get team of user %d", actor.UserID)
	}
	positions, err := s.positionRepo.ListByPyramid(ctx, nil, pyramidID)
	if err != nil {
		return nil, handleRepositoryError(err, "list positions of pyramid %d", pyramidID)
	}
	open, err := s.matchRepo.ListByPyramid(ctx, nil, pyramidID, models.OpenMatchStatuses...)
	if err != nil {
		return nil, handleRepositoryError(err, "list open matches of pyramid %d", pyramidID)
	}
	return ladder.ChallengeableSlots(ladder.NewGrid(positions), open, team.ID), nil
}
