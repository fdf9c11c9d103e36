package state

import (
	"bytes"
	"math/big"
	"testing"

	"storychain/core/types"
	"storychain/native/registry"
	"storychain/storage"
)

func testAddr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestStoryRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	story := &registry.Story{
		TokenID:        1,
		Title:          "Test Story",
		Description:    "a description",
		AudioCID:       []byte{0x01, 0x02, 0x03},
		ImageCID:       []byte{0x04, 0x05},
		Creator:        testAddr(0x01),
		RoyaltyPercent: 10,
		MintedAt:       1_700_000_000,
	}
	if err := manager.StoryPut(story); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	loaded, ok, err := manager.StoryGet(1)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if loaded.Title != story.Title || loaded.Description != story.Description {
		t.Fatalf("text fields not preserved")
	}
	if !bytes.Equal(loaded.AudioCID, story.AudioCID) || !bytes.Equal(loaded.ImageCID, story.ImageCID) {
		t.Fatalf("content identifiers not preserved")
	}
	if loaded.Creator != story.Creator || loaded.RoyaltyPercent != story.RoyaltyPercent || loaded.MintedAt != story.MintedAt {
		t.Fatalf("immutable fields not preserved")
	}
}

func TestStoryGetAbsent(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	if _, ok, err := manager.StoryGet(42); err != nil || ok {
		t.Fatalf("expected absent story, got ok=%v err=%v", ok, err)
	}
}

func TestTokenCounter(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	if last, err := manager.LastTokenID(); err != nil || last != 0 {
		t.Fatalf("fresh counter should be zero, got %d err=%v", last, err)
	}
	if err := manager.SetLastTokenID(7); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if last, err := manager.LastTokenID(); err != nil || last != 7 {
		t.Fatalf("counter not persisted, got %d err=%v", last, err)
	}
}

func TestAccountRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := testAddr(0x02)
	if acc, err := manager.GetAccount(addr[:]); err != nil || acc != nil {
		t.Fatalf("expected nil account before first write, got %v err=%v", acc, err)
	}
	if err := manager.PutAccount(addr[:], &types.Account{Nonce: 3, Balance: big.NewInt(1_000)}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	acc, err := manager.GetAccount(addr[:])
	if err != nil || acc == nil {
		t.Fatalf("get failed: %v", err)
	}
	if acc.Nonce != 3 || acc.Balance.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("account fields not preserved: %+v", acc)
	}
}

func TestOwnershipLedger(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	first := testAddr(0x01)
	second := testAddr(0x02)

	if err := manager.Mint(5, first); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := manager.Mint(5, second); err == nil {
		t.Fatalf("expected double mint to fail")
	}
	owner, ok, err := manager.OwnerOf(5)
	if err != nil || !ok || owner != first {
		t.Fatalf("owner lookup failed: ok=%v err=%v", ok, err)
	}

	if err := manager.Transfer(5, second, first); err == nil {
		t.Fatalf("expected transfer by non-holder to fail")
	}
	if err := manager.Transfer(6, first, second); err == nil {
		t.Fatalf("expected transfer of unknown token to fail")
	}
	if err := manager.Transfer(5, first, second); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	owner, _, _ = manager.OwnerOf(5)
	if owner != second {
		t.Fatalf("ownership did not move")
	}
}

func TestTxnCommitAndDiscard(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)

	txn := manager.Begin()
	if err := txn.SetLastTokenID(1); err != nil {
		t.Fatalf("set in txn failed: %v", err)
	}
	if err := txn.StoryPut(&registry.Story{TokenID: 1, Title: "t", Creator: testAddr(0x01)}); err != nil {
		t.Fatalf("put in txn failed: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("txn writes must not touch the base store before commit")
	}
	// The txn reads its own writes.
	if last, err := txn.LastTokenID(); err != nil || last != 1 {
		t.Fatalf("txn read-your-writes broken: %d err=%v", last, err)
	}
	// The base manager still sees the old state.
	if last, err := manager.LastTokenID(); err != nil || last != 0 {
		t.Fatalf("txn leaked before commit: %d err=%v", last, err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if last, err := manager.LastTokenID(); err != nil || last != 1 {
		t.Fatalf("commit not applied: %d err=%v", last, err)
	}

	before := db.Len()
	discarded := manager.Begin()
	if err := discarded.SetLastTokenID(9); err != nil {
		t.Fatalf("set in txn failed: %v", err)
	}
	if err := discarded.Mint(2, testAddr(0x02)); err != nil {
		t.Fatalf("mint in txn failed: %v", err)
	}
	discarded.Discard()
	if db.Len() != before {
		t.Fatalf("discard leaked writes into the base store")
	}
	if last, _ := manager.LastTokenID(); last != 1 {
		t.Fatalf("discarded counter write applied: %d", last)
	}
	if _, ok, _ := manager.OwnerOf(2); ok {
		t.Fatalf("discarded ownership write applied")
	}
}
