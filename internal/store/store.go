package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Namespaced keys. All engine state lives under lp:*.
const (
	keyUser        = "lp:user:%s"        // UserProfile
	keyChatWallet  = "lp:chat:%d:wallet" // reverse lookup
	keyRecipient   = "lp:recipient:%s"   // Recipient
	keyTrackedSet  = "lp:tracked:%s"     // set of position ids
	keyTracked     = "lp:tracked:%s:%s"  // TrackedPosition record
	keySchedules   = "lp:dca:schedules"  // hash id -> Schedule
	keyActiveSet   = "lp:dca:active"     // set of active schedule ids
	keyDCAHistory  = "lp:dca:history:%s" // capped execution list
	keyWorkerState = "lp:worker:state"   // WorkerState singleton
	keyWorkerLogs  = "lp:worker:logs"    // capped ring buffer

	workerLogCap  = 500
	dcaHistoryCap = 100
)

// Store is the typed façade over the durable key-value store. All writes are
// idempotent at the key level; there are no multi-key transactions. Callers
// needing consistency write value first, set membership second, so a crash
// between steps leaves at most an unreachable record.
type Store struct {
	kv  KV
	log *logger.Logger
}

// New creates the façade.
func New(kv KV) *Store {
	return &Store{kv: kv, log: logger.Get().With("component", "store")}
}

// Health reports backing-store reachability.
func (s *Store) Health(ctx context.Context) error {
	return s.kv.Health(ctx)
}

// --- user profiles ---

func (s *Store) SaveUser(ctx context.Context, profile *lp.UserProfile) error {
	if err := s.kv.Set(ctx, fmt.Sprintf(keyUser, profile.WalletID), profile, 0); err != nil {
		return err
	}
	if profile.ChatID != 0 {
		return s.kv.Set(ctx, fmt.Sprintf(keyChatWallet, profile.ChatID), profile.WalletID, 0)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, walletID string) (*lp.UserProfile, error) {
	var profile lp.UserProfile
	if err := s.kv.Get(ctx, fmt.Sprintf(keyUser, walletID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) WalletForChat(ctx context.Context, chatID int64) (string, error) {
	var walletID string
	if err := s.kv.Get(ctx, fmt.Sprintf(keyChatWallet, chatID), &walletID); err != nil {
		return "", err
	}
	return walletID, nil
}

// --- recipients ---

func (s *Store) SaveRecipient(ctx context.Context, recipient *lp.Recipient) error {
	if !recipient.HasTransport() {
		return errors.Wrap(errors.ErrValidation, "recipient needs at least one enabled transport")
	}
	return s.kv.Set(ctx, fmt.Sprintf(keyRecipient, recipient.Wallet), recipient, 0)
}

func (s *Store) GetRecipient(ctx context.Context, wallet string) (*lp.Recipient, error) {
	var recipient lp.Recipient
	if err := s.kv.Get(ctx, fmt.Sprintf(keyRecipient, wallet), &recipient); err != nil {
		return nil, err
	}
	return &recipient, nil
}

// --- tracked positions ---

// SaveTracked writes the record before set membership, per the façade's
// crash-ordering rule.
func (s *Store) SaveTracked(ctx context.Context, tracked *lp.TrackedPosition) error {
	if err := s.kv.Set(ctx, fmt.Sprintf(keyTracked, tracked.Wallet, tracked.PositionID), tracked, 0); err != nil {
		return err
	}
	return s.kv.SetAdd(ctx, fmt.Sprintf(keyTrackedSet, tracked.Wallet), tracked.PositionID)
}

func (s *Store) GetTracked(ctx context.Context, wallet, positionID string) (*lp.TrackedPosition, error) {
	var tracked lp.TrackedPosition
	if err := s.kv.Get(ctx, fmt.Sprintf(keyTracked, wallet, positionID), &tracked); err != nil {
		return nil, err
	}
	return &tracked, nil
}

func (s *Store) ListTracked(ctx context.Context, wallet string) ([]*lp.TrackedPosition, error) {
	ids, err := s.kv.SetMembers(ctx, fmt.Sprintf(keyTrackedSet, wallet))
	if err != nil {
		return nil, err
	}

	out := make([]*lp.TrackedPosition, 0, len(ids))
	for _, id := range ids {
		tracked, err := s.GetTracked(ctx, wallet, id)
		if err != nil {
			if errors.Is(err, ErrKeyMissing) {
				continue
			}
			return nil, err
		}
		out = append(out, tracked)
	}
	return out, nil
}

func (s *Store) RemoveTracked(ctx context.Context, wallet, positionID string) error {
	if err := s.kv.SetRemove(ctx, fmt.Sprintf(keyTrackedSet, wallet), positionID); err != nil {
		return err
	}
	return s.kv.Delete(ctx, fmt.Sprintf(keyTracked, wallet, positionID))
}

// TrackedWallets lists the members of the tracked-wallets set, to which
// wallets are added on recipient registration and on position tracking. The
// monitor starts its scan from this list.
func (s *Store) TrackedWallets(ctx context.Context) ([]string, error) {
	return s.kv.SetMembers(ctx, "lp:tracked:wallets")
}

func (s *Store) AddTrackedWallet(ctx context.Context, wallet string) error {
	return s.kv.SetAdd(ctx, "lp:tracked:wallets", wallet)
}

// --- DCA schedules ---

// SaveSchedule writes the hash entry first, then fixes up active-set
// membership to match the status.
func (s *Store) SaveSchedule(ctx context.Context, schedule *lp.Schedule) error {
	if err := s.kv.HashSet(ctx, keySchedules, schedule.ID, schedule); err != nil {
		return err
	}
	if schedule.Status == lp.ScheduleActive {
		return s.kv.SetAdd(ctx, keyActiveSet, schedule.ID)
	}
	return s.kv.SetRemove(ctx, keyActiveSet, schedule.ID)
}

func (s *Store) GetSchedule(ctx context.Context, id string) (*lp.Schedule, error) {
	var schedule lp.Schedule
	if err := s.kv.HashGet(ctx, keySchedules, id, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (s *Store) ActiveSchedules(ctx context.Context) ([]*lp.Schedule, error) {
	ids, err := s.kv.SetMembers(ctx, keyActiveSet)
	if err != nil {
		return nil, err
	}

	out := make([]*lp.Schedule, 0, len(ids))
	for _, id := range ids {
		schedule, err := s.GetSchedule(ctx, id)
		if err != nil {
			if errors.Is(err, ErrKeyMissing) {
				continue
			}
			return nil, err
		}
		out = append(out, schedule)
	}
	return out, nil
}

func (s *Store) SchedulesByWallet(ctx context.Context, wallet string) ([]*lp.Schedule, error) {
	all, err := s.kv.HashGetAll(ctx, keySchedules)
	if err != nil {
		return nil, err
	}

	out := make([]*lp.Schedule, 0)
	for _, raw := range all {
		var schedule lp.Schedule
		if err := json.Unmarshal([]byte(raw), &schedule); err != nil {
			continue
		}
		if schedule.Wallet == wallet {
			out = append(out, &schedule)
		}
	}
	return out, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.kv.SetRemove(ctx, keyActiveSet, id); err != nil {
		return err
	}
	return s.kv.HashDelete(ctx, keySchedules, id)
}

func (s *Store) AppendScheduleHistory(ctx context.Context, id string, exec *lp.ScheduleExecution) error {
	key := fmt.Sprintf(keyDCAHistory, id)
	if err := s.kv.ListPush(ctx, key, exec); err != nil {
		return err
	}
	return s.kv.ListTrim(ctx, key, dcaHistoryCap)
}

func (s *Store) ScheduleHistory(ctx context.Context, id string) ([]*lp.ScheduleExecution, error) {
	raw, err := s.kv.ListRange(ctx, fmt.Sprintf(keyDCAHistory, id), 0, dcaHistoryCap-1)
	if err != nil {
		return nil, err
	}

	out := make([]*lp.ScheduleExecution, 0, len(raw))
	for _, item := range raw {
		var exec lp.ScheduleExecution
		if err := json.Unmarshal([]byte(item), &exec); err != nil {
			continue
		}
		out = append(out, &exec)
	}
	return out, nil
}

// --- worker state ---

func (s *Store) SaveWorkerState(ctx context.Context, state *lp.WorkerState) error {
	return s.kv.Set(ctx, keyWorkerState, state, 0)
}

func (s *Store) GetWorkerState(ctx context.Context) (*lp.WorkerState, error) {
	var state lp.WorkerState
	if err := s.kv.Get(ctx, keyWorkerState, &state); err != nil {
		if errors.Is(err, ErrKeyMissing) {
			return &lp.WorkerState{}, nil
		}
		return nil, err
	}
	return &state, nil
}

// WorkerLog is one ring-buffer entry.
type WorkerLog struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// AppendWorkerLog pushes onto the capped durable ring buffer.
func (s *Store) AppendWorkerLog(ctx context.Context, level, message string) error {
	entry := WorkerLog{At: time.Now(), Level: level, Message: message}
	if err := s.kv.ListPush(ctx, keyWorkerLogs, entry); err != nil {
		return err
	}
	return s.kv.ListTrim(ctx, keyWorkerLogs, workerLogCap)
}

func (s *Store) WorkerLogs(ctx context.Context, limit int64) ([]WorkerLog, error) {
	if limit <= 0 || limit > workerLogCap {
		limit = workerLogCap
	}
	raw, err := s.kv.ListRange(ctx, keyWorkerLogs, 0, limit-1)
	if err != nil {
		return nil, err
	}

	out := make([]WorkerLog, 0, len(raw))
	for _, item := range raw {
		var entry WorkerLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
