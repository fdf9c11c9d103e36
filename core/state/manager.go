package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"storychain/core/types"
	"storychain/native/registry"
	"storychain/storage"
)

// Manager reads and writes registry state against a key-value backend. Keys
// are prefixed then keccak-hashed; records are RLP encoded. It implements both
// the engine's state interface and the token ledger capability.
type Manager struct {
	kv keyValueStore
}

type keyValueStore interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// NewManager creates a state manager operating directly on the database.
func NewManager(db storage.Database) *Manager {
	return &Manager{kv: db}
}

var (
	storyPrefix   = []byte("registry/story:")
	ownerPrefix   = []byte("registry/owner:")
	accountPrefix = []byte("account:")
	lastTokenKey  = ethcrypto.Keccak256([]byte("registry/last-token-id"))
)

var errTokenAlreadyMinted = errors.New("state: token already has an owner")

func storyKey(tokenID uint64) []byte {
	return hashedKey(storyPrefix, tokenID)
}

func ownerKey(tokenID uint64) []byte {
	return hashedKey(ownerPrefix, tokenID)
}

func hashedKey(prefix []byte, tokenID uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], tokenID)
	return ethcrypto.Keccak256(buf)
}

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return ethcrypto.Keccak256(buf)
}

// storedStory is the RLP wire form of a story record. RLP carries no signed
// integers, so the mint timestamp travels as a uint64.
type storedStory struct {
	TokenID        uint64
	Title          string
	Description    string
	AudioCID       []byte
	ImageCID       []byte
	Creator        [20]byte
	RoyaltyPercent uint8
	MintedAt       uint64
}

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	data, err := m.kv.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// StoryGet loads the story record for the token id.
func (m *Manager) StoryGet(tokenID uint64) (*registry.Story, bool, error) {
	data, ok, err := m.get(storyKey(tokenID))
	if err != nil || !ok {
		return nil, false, err
	}
	stored := new(storedStory)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, false, fmt.Errorf("state: decode story %d: %w", tokenID, err)
	}
	return &registry.Story{
		TokenID:        stored.TokenID,
		Title:          stored.Title,
		Description:    stored.Description,
		AudioCID:       stored.AudioCID,
		ImageCID:       stored.ImageCID,
		Creator:        stored.Creator,
		RoyaltyPercent: stored.RoyaltyPercent,
		MintedAt:       int64(stored.MintedAt),
	}, true, nil
}

// StoryPut persists the story record keyed by its token id.
func (m *Manager) StoryPut(story *registry.Story) error {
	if story == nil {
		return errors.New("state: nil story")
	}
	encoded, err := rlp.EncodeToBytes(&storedStory{
		TokenID:        story.TokenID,
		Title:          story.Title,
		Description:    story.Description,
		AudioCID:       story.AudioCID,
		ImageCID:       story.ImageCID,
		Creator:        story.Creator,
		RoyaltyPercent: story.RoyaltyPercent,
		MintedAt:       uint64(story.MintedAt),
	})
	if err != nil {
		return err
	}
	return m.kv.Put(storyKey(story.TokenID), encoded)
}

// LastTokenID returns the current token counter value, zero before any mint.
func (m *Manager) LastTokenID() (uint64, error) {
	data, ok, err := m.get(lastTokenKey)
	if err != nil || !ok {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("state: malformed token counter (%d bytes)", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// SetLastTokenID persists the token counter.
func (m *Manager) SetLastTokenID(id uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return m.kv.Put(lastTokenKey, buf)
}

// GetAccount loads the account for the address, or nil when absent.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	data, ok, err := m.get(accountKey(addr))
	if err != nil || !ok {
		return nil, err
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return &types.Account{Nonce: stored.Nonce, Balance: stored.Balance}, nil
}

// PutAccount persists the account record for the address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	encoded, err := rlp.EncodeToBytes(&storedAccount{Nonce: account.Nonce, Balance: balance})
	if err != nil {
		return err
	}
	return m.kv.Put(accountKey(addr), encoded)
}

// Mint assigns initial ownership of a freshly allocated token id.
func (m *Manager) Mint(tokenID uint64, owner [20]byte) error {
	key := ownerKey(tokenID)
	if _, ok, err := m.get(key); err != nil {
		return err
	} else if ok {
		return errTokenAlreadyMinted
	}
	return m.kv.Put(key, owner[:])
}

// Transfer reassigns ownership from the current holder to the recipient. It
// fails when `from` does not hold the token.
func (m *Manager) Transfer(tokenID uint64, from [20]byte, to [20]byte) error {
	current, ok, err := m.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("state: token %d has no owner", tokenID)
	}
	if current != from {
		return fmt.Errorf("state: token %d not held by sender", tokenID)
	}
	return m.kv.Put(ownerKey(tokenID), to[:])
}

// OwnerOf resolves the current holder of the token id.
func (m *Manager) OwnerOf(tokenID uint64) ([20]byte, bool, error) {
	data, ok, err := m.get(ownerKey(tokenID))
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	if len(data) != 20 {
		return [20]byte{}, false, fmt.Errorf("state: malformed owner record (%d bytes)", len(data))
	}
	var owner [20]byte
	copy(owner[:], data)
	return owner, true, nil
}
