package dispatch

import (
	"encoding/json"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

func journalPlan() *types.TransactionPlan {
	return &types.TransactionPlan{
		ChainID: 8453,
		Steps: []types.TransactionStep{
			{Kind: types.StepApproval, To: common.HexToAddress("0x01"), Value: big.NewInt(0), ChainID: 8453},
			{Kind: types.StepAction, To: common.HexToAddress("0x02"), Value: big.NewInt(0), ChainID: 8453},
		},
	}
}

func TestJournalLifecycle(t *testing.T) {
	j := NewJournal(t.TempDir())
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	entry, err := j.Begin(journalPlan(), wallet)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if entry.State != stateSequential {
		t.Errorf("State = %q, want %q", entry.State, stateSequential)
	}
	if entry.StepCount != 2 || len(entry.StepKinds) != 2 {
		t.Errorf("steps recorded wrong: count=%d kinds=%v", entry.StepCount, entry.StepKinds)
	}

	loaded, err := j.Load(entry.PlanID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil || loaded.Wallet != wallet.Hex() {
		t.Fatalf("Load() = %+v, want entry for %s", loaded, wallet.Hex())
	}

	hash := common.HexToHash("0xab")
	if err := j.RecordStep(entry, 0, hash); err != nil {
		t.Fatalf("RecordStep() error = %v", err)
	}

	loaded, err = j.Load(entry.PlanID)
	if err != nil {
		t.Fatalf("Load() after step error = %v", err)
	}
	if len(loaded.Confirmed) != 1 || loaded.Confirmed[0] != hash {
		t.Errorf("Confirmed = %v, want [%s]", loaded.Confirmed, hash.Hex())
	}
}

func TestJournalRecordStepOutOfOrder(t *testing.T) {
	j := NewJournal(t.TempDir())
	entry, err := j.Begin(journalPlan(), common.Address{})
	if err != nil {
		t.Fatal(err)
	}
	if err := j.RecordStep(entry, 1, common.HexToHash("0xab")); err == nil {
		t.Error("RecordStep() out of order succeeded")
	}
}

func TestJournalFinish(t *testing.T) {
	t.Run("confirmed removes the entry", func(t *testing.T) {
		j := NewJournal(t.TempDir())
		entry, err := j.Begin(journalPlan(), common.Address{})
		if err != nil {
			t.Fatal(err)
		}
		if err := j.Finish(entry, stateConfirmed); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		loaded, err := j.Load(entry.PlanID)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if loaded != nil {
			t.Error("confirmed entry still on disk")
		}
	})

	t.Run("failed keeps the entry", func(t *testing.T) {
		j := NewJournal(t.TempDir())
		entry, err := j.Begin(journalPlan(), common.Address{})
		if err != nil {
			t.Fatal(err)
		}
		if err := j.Finish(entry, stateFailed); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		loaded, err := j.Load(entry.PlanID)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if loaded == nil || loaded.State != stateFailed {
			t.Errorf("Load() = %+v, want failed entry", loaded)
		}
	})
}

func TestJournalList(t *testing.T) {
	j := NewJournal(t.TempDir())
	for i := 0; i < 3; i++ {
		if _, err := j.Begin(journalPlan(), common.Address{}); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := j.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("List() = %d entries, want 3", len(entries))
	}
}

func TestJournalLoadMissing(t *testing.T) {
	j := NewJournal(t.TempDir())
	entry, err := j.Load("no-such-plan")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if entry != nil {
		t.Errorf("Load() = %+v, want nil", entry)
	}
}

func TestJournalCleanupOld(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)

	old, err := j.Begin(journalPlan(), common.Address{})
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := j.Begin(journalPlan(), common.Address{})
	if err != nil {
		t.Fatal(err)
	}

	// age the first entry by rewriting its timestamps directly
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	old.UpdatedAt = old.CreatedAt
	if err := writeAged(j, old); err != nil {
		t.Fatal(err)
	}

	deleted, err := j.CleanupOld(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupOld() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("CleanupOld() = %d, want 1", deleted)
	}
	if entry, _ := j.Load(fresh.PlanID); entry == nil {
		t.Error("fresh entry was deleted")
	}
}

// writeAged persists an entry without refreshing UpdatedAt, which save() would.
func writeAged(j *Journal, entry *JournalEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path(entry.PlanID), data, 0600)
}
