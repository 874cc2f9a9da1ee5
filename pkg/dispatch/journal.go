package dispatch

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// JournalEntry records the on-disk progress of one sequentially dispatched
// plan. If the process dies between steps, the entry tells an operator which
// hashes (typically an approval) are already live on-chain. The journal is
// reconciliation data only; the dispatcher never reads it to retry.
type JournalEntry struct {
	PlanID    string        `json:"plan_id"`
	Wallet    string        `json:"wallet"`
	ChainID   uint64        `json:"chain_id"`
	State     string        `json:"state"` // PENDING, SEQUENTIAL, CONFIRMED, FAILED
	StepCount int           `json:"step_count"`
	StepKinds []string      `json:"step_kinds"`
	Confirmed []common.Hash `json:"confirmed,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Journal persists plan progress as one JSON file per plan under a directory.
type Journal struct {
	dir string
}

// NewJournal creates a journal rooted at dir.
func NewJournal(dir string) *Journal {
	return &Journal{dir: dir}
}

// DefaultJournal places the journal under ~/.strata/plans/.
func DefaultJournal() *Journal {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return NewJournal(filepath.Join(homeDir, ".strata", "plans"))
}

// Begin writes the initial entry for a plan about to go out sequentially.
func (j *Journal) Begin(plan *types.TransactionPlan, wallet common.Address) (*JournalEntry, error) {
	kinds := make([]string, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		kinds = append(kinds, string(s.Kind))
	}

	entry := &JournalEntry{
		PlanID:    newPlanID(),
		Wallet:    wallet.Hex(),
		ChainID:   uint64(plan.ChainID),
		State:     stateSequential,
		StepCount: len(plan.Steps),
		StepKinds: kinds,
		CreatedAt: time.Now().UTC(),
	}
	if err := j.save(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordStep appends a confirmed step hash to the entry.
func (j *Journal) RecordStep(entry *JournalEntry, step int, hash common.Hash) error {
	if step != len(entry.Confirmed) {
		return fmt.Errorf("journal out of order: recording step %d after %d confirmations", step, len(entry.Confirmed))
	}
	entry.Confirmed = append(entry.Confirmed, hash)
	return j.save(entry)
}

// Finish moves the entry to a terminal state. Confirmed plans are removed;
// failed ones are kept for reconciliation.
func (j *Journal) Finish(entry *JournalEntry, state string) error {
	entry.State = state
	if state == stateConfirmed {
		return j.delete(entry.PlanID)
	}
	return j.save(entry)
}

// Load reads a journal entry by plan ID. Returns nil when no entry exists.
func (j *Journal) Load(planID string) (*JournalEntry, error) {
	data, err := os.ReadFile(j.path(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	var entry JournalEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse journal file: %w", err)
	}
	return &entry, nil
}

// List returns all persisted entries, skipping unreadable files.
func (j *Journal) List() ([]*JournalEntry, error) {
	if err := j.ensureDir(); err != nil {
		return nil, err
	}

	files, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var entries []*JournalEntry
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		entry, err := j.Load(f.Name()[:len(f.Name())-5])
		if err != nil || entry == nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CleanupOld removes entries older than maxAge, returning how many were
// deleted.
func (j *Journal) CleanupOld(maxAge time.Duration) (int, error) {
	entries, err := j.List()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	deleted := 0
	for _, entry := range entries {
		age := now.Sub(entry.UpdatedAt)
		if entry.UpdatedAt.IsZero() {
			age = now.Sub(entry.CreatedAt)
		}
		if age > maxAge {
			if err := j.delete(entry.PlanID); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

func (j *Journal) save(entry *JournalEntry) error {
	if err := j.ensureDir(); err != nil {
		return err
	}

	entry.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	path := j.path(entry.PlanID)

	// Write atomically using temp file + rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename journal temp file: %w", err)
	}
	return nil
}

func (j *Journal) delete(planID string) error {
	if err := os.Remove(j.path(planID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal file: %w", err)
	}
	return nil
}

func (j *Journal) path(planID string) string {
	return filepath.Join(j.dir, planID+".json")
}

func (j *Journal) ensureDir() error {
	return os.MkdirAll(j.dir, 0700)
}

func newPlanID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("plan-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("plan-%d-%s", time.Now().UTC().Unix(), hex.EncodeToString(b[:]))
}
