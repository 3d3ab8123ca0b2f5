package mock

import (
	"context"
	"sync"
	"time"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
)

// RosterStore is a mock implementation of service.RosterStore and
// service.ActionLogSource for testing.
type RosterStore struct {
	mu sync.Mutex

	// Per-user fixtures
	Selected map[string]*service.CreatureRecord
	Parties  map[string][]service.CreatureRecord
	Accounts map[string]*service.TrainerAccount
	Regions  map[string]string

	// Per-creature reward state re-read during settlement
	RewardStates map[int64]service.CreatureRewardState

	// Suspicious log entries keyed by "userID|otherID"
	LogEntries map[string][]service.ActionLogEntry

	WildCreature *service.CreatureRecord

	DefaultError error

	// Call tracking
	RewardCalls      []RewardCall
	AchievementCalls []AchievementCall
	EnergyDeductions []string
	CreditGrants     []CreditGrant
	LogScans         []LogScan
}

// RewardCall tracks parameters for ApplyDuelReward calls.
type RewardCall struct {
	CreatureID int64
	ExpDelta   int
}

// AchievementCall tracks parameters for IncrementAchievements calls.
type AchievementCall struct {
	Counter string
	UserIDs []string
}

// CreditGrant tracks parameters for GrantCredits calls.
type CreditGrant struct {
	UserID string
	Amount int
}

// LogScan tracks parameters for SuspiciousEntries calls.
type LogScan struct {
	UserID  string
	OtherID string
	Marker  string
	Since   time.Time
}

// NewRosterStore creates an empty mock roster store.
func NewRosterStore() *RosterStore {
	return &RosterStore{
		Selected:     make(map[string]*service.CreatureRecord),
		Parties:      make(map[string][]service.CreatureRecord),
		Accounts:     make(map[string]*service.TrainerAccount),
		Regions:      make(map[string]string),
		RewardStates: make(map[int64]service.CreatureRewardState),
		LogEntries:   make(map[string][]service.ActionLogEntry),
	}
}

func (s *RosterStore) SelectedCreature(ctx context.Context, userID string) (*service.CreatureRecord, error) {
	return s.Selected[userID], s.DefaultError
}

func (s *RosterStore) PartyCreatures(ctx context.Context, userID string) ([]service.CreatureRecord, error) {
	if s.DefaultError != nil {
		return nil, s.DefaultError
	}
	party, ok := s.Parties[userID]
	if !ok {
		return nil, service.ErrNotStarted
	}
	return party, nil
}

func (s *RosterStore) CreatureRewardState(ctx context.Context, creatureID int64) (service.CreatureRewardState, error) {
	return s.RewardStates[creatureID], s.DefaultError
}

func (s *RosterStore) ApplyDuelReward(ctx context.Context, creatureID int64, expDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RewardCalls = append(s.RewardCalls, RewardCall{CreatureID: creatureID, ExpDelta: expDelta})
	return s.DefaultError
}

func (s *RosterStore) IncrementAchievements(ctx context.Context, counter string, userIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AchievementCalls = append(s.AchievementCalls, AchievementCall{Counter: counter, UserIDs: userIDs})
	return s.DefaultError
}

func (s *RosterStore) Region(ctx context.Context, userID string) (string, error) {
	return s.Regions[userID], s.DefaultError
}

func (s *RosterStore) SetRegion(ctx context.Context, userID, region string) error {
	s.Regions[userID] = region
	return s.DefaultError
}

func (s *RosterStore) TrainerAccount(ctx context.Context, userID string) (*service.TrainerAccount, error) {
	return s.Accounts[userID], s.DefaultError
}

func (s *RosterStore) DeductEnergy(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EnergyDeductions = append(s.EnergyDeductions, userID)
	return s.DefaultError
}

func (s *RosterStore) GrantCredits(ctx context.Context, userID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreditGrants = append(s.CreditGrants, CreditGrant{UserID: userID, Amount: amount})
	return s.DefaultError
}

func (s *RosterStore) RandomWildCreature(ctx context.Context, level int) (*service.CreatureRecord, error) {
	return s.WildCreature, s.DefaultError
}

func (s *RosterStore) SuspiciousEntries(ctx context.Context, userID, otherID, marker string, since time.Time) ([]service.ActionLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LogScans = append(s.LogScans, LogScan{UserID: userID, OtherID: otherID, Marker: marker, Since: since})
	return s.LogEntries[userID+"|"+otherID], s.DefaultError
}
