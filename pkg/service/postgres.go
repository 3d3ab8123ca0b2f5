package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eskrenkovic/tql"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ErrNotStarted is returned when a user has no account row yet.
var ErrNotStarted = errors.New("user has not started")

// placeholderName marks creatures that cannot battle (unhatched eggs).
const placeholderName = "egg"

// achievementColumns whitelists the counters IncrementAchievements may touch.
// The counter name is interpolated into SQL, so it must never come from user
// input without passing through this map.
var achievementColumns = map[string]string{
	"duels_total":       "duels_total",
	"duel_single_wins":  "duel_single_wins",
	"duel_party_wins":   "duel_party_wins",
	"duel_inverse_wins": "duel_inverse_wins",
	"npc_wins":          "npc_wins",
}

// PostgresRosterStore implements RosterStore and ActionLogSource against the
// game's relational store.
type PostgresRosterStore struct {
	db  *sql.DB
	cfg PostgresRosterStoreConfig
}

type PostgresRosterStoreConfig struct {
	// ExcludedCreatureIDs are special creature ids (event placeholders)
	// that must never be loaded into a session.
	ExcludedCreatureIDs []int64
}

func NewPostgresRosterStore(db *sql.DB, cfg PostgresRosterStoreConfig) *PostgresRosterStore {
	return &PostgresRosterStore{db: db, cfg: cfg}
}

func (s *PostgresRosterStore) SelectedCreature(ctx context.Context, userID string) (*CreatureRecord, error) {
	const query = `
		SELECT id, name, nickname, level, held_item, experience, happiness
		FROM creatures
		WHERE id = (SELECT selected_id FROM trainers WHERE trainer_id = $1)`

	record, err := tql.QueryFirst[CreatureRecord](ctx, s.db, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch selected creature for user %s: %w", userID, err)
	}

	return &record, nil
}

func (s *PostgresRosterStore) PartyCreatures(ctx context.Context, userID string) ([]CreatureRecord, error) {
	var party pq.Int64Array
	err := s.db.QueryRowContext(ctx,
		"SELECT party FROM trainers WHERE trainer_id = $1", userID,
	).Scan(&party)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotStarted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch party for user %s: %w", userID, err)
	}

	// Zero marks an empty party slot.
	ids := make([]int64, 0, len(party))
	for _, id := range party {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	const query = `
		SELECT id, name, nickname, level, held_item, experience, happiness
		FROM creatures
		WHERE id = ANY($1) AND NOT (id = ANY($2))`

	records, err := tql.Query[CreatureRecord](ctx, s.db, query,
		pq.Array(ids), pq.Array(s.cfg.ExcludedCreatureIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch party creatures for user %s: %w", userID, err)
	}

	// Drop placeholders and restore party order; the IN fetch does not
	// preserve it.
	byID := make(map[int64]CreatureRecord, len(records))
	for _, r := range records {
		if strings.EqualFold(r.Name, placeholderName) {
			continue
		}
		byID[r.ID] = r
	}

	ordered := make([]CreatureRecord, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}

	return ordered, nil
}

func (s *PostgresRosterStore) CreatureRewardState(ctx context.Context, creatureID int64) (CreatureRewardState, error) {
	const query = "SELECT held_item, experience FROM creatures WHERE id = $1"

	state, err := tql.QueryFirst[CreatureRewardState](ctx, s.db, query, creatureID)
	if err != nil {
		return CreatureRewardState{}, fmt.Errorf("failed to fetch reward state for creature %d: %w", creatureID, err)
	}

	return state, nil
}

func (s *PostgresRosterStore) ApplyDuelReward(ctx context.Context, creatureID int64, expDelta int) error {
	const stmt = "UPDATE creatures SET happiness = happiness + 1, experience = experience + $1 WHERE id = $2"

	if _, err := s.db.ExecContext(ctx, stmt, expDelta, creatureID); err != nil {
		return fmt.Errorf("failed to apply duel reward to creature %d: %w", creatureID, err)
	}

	return nil
}

func (s *PostgresRosterStore) IncrementAchievements(ctx context.Context, counter string, userIDs ...string) error {
	column, ok := achievementColumns[counter]
	if !ok {
		return fmt.Errorf("unknown achievement counter: %s", counter)
	}
	if len(userIDs) == 0 {
		return nil
	}

	stmt := fmt.Sprintf(
		"UPDATE achievements SET %s = %s + 1 WHERE trainer_id = ANY($1)", column, column)

	if _, err := s.db.ExecContext(ctx, stmt, pq.Array(userIDs)); err != nil {
		return fmt.Errorf("failed to increment achievement %s: %w", counter, err)
	}

	return nil
}

func (s *PostgresRosterStore) Region(ctx context.Context, userID string) (string, error) {
	var region string
	err := s.db.QueryRowContext(ctx,
		"SELECT region FROM trainers WHERE trainer_id = $1", userID,
	).Scan(&region)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotStarted
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch region for user %s: %w", userID, err)
	}

	return region, nil
}

func (s *PostgresRosterStore) SetRegion(ctx context.Context, userID, region string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE trainers SET region = $1 WHERE trainer_id = $2", region, userID,
	); err != nil {
		return fmt.Errorf("failed to set region for user %s: %w", userID, err)
	}

	return nil
}

func (s *PostgresRosterStore) TrainerAccount(ctx context.Context, userID string) (*TrainerAccount, error) {
	const query = "SELECT energy, inventory::json AS inventory FROM trainers WHERE trainer_id = $1"

	account, err := tql.QueryFirst[TrainerAccount](ctx, s.db, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account for user %s: %w", userID, err)
	}

	return &account, nil
}

func (s *PostgresRosterStore) DeductEnergy(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE trainers SET energy = energy - 1 WHERE trainer_id = $1", userID,
	); err != nil {
		return fmt.Errorf("failed to deduct energy for user %s: %w", userID, err)
	}

	return nil
}

func (s *PostgresRosterStore) GrantCredits(ctx context.Context, userID string, amount int) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE trainers SET credits = credits + $1 WHERE trainer_id = $2", amount, userID,
	); err != nil {
		return fmt.Errorf("failed to grant %d credits to user %s: %w", amount, userID, err)
	}

	return nil
}

func (s *PostgresRosterStore) RandomWildCreature(ctx context.Context, level int) (*CreatureRecord, error) {
	// Candidates within ten levels of the challenger, excluding special ids
	// and placeholders. ORDER BY random() over the bounded candidate set is
	// acceptable at this table size.
	const query = `
		SELECT id, name, nickname, level, held_item, experience, happiness
		FROM creatures
		WHERE level BETWEEN $1 - 10 AND $1 + 10
		  AND NOT (id = ANY($2))
		  AND lower(name) <> $3
		ORDER BY random()
		LIMIT 1`

	record, err := tql.QueryFirst[CreatureRecord](ctx, s.db, query,
		level, pq.Array(s.cfg.ExcludedCreatureIDs), placeholderName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no wild creature candidates near level %d", level)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick wild creature: %w", err)
	}

	logrus.Debugf("picked wild creature %d (%s, level %d)", record.ID, record.Name, record.Level)
	return &record, nil
}

func (s *PostgresRosterStore) SuspiciousEntries(ctx context.Context, userID, otherID, marker string, since time.Time) ([]ActionLogEntry, error) {
	const query = `
		SELECT time, extract(epoch FROM time)::bigint AS epoch, args
		FROM action_log
		WHERE trainer_id = $1 AND time > $2 AND args LIKE $3
		ORDER BY time`

	pattern := "%" + marker + "%" + otherID + "%"

	entries, err := tql.Query[ActionLogEntry](ctx, s.db, query, userID, since, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan action log for user %s: %w", userID, err)
	}

	return entries, nil
}
