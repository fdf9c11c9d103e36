package registry

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"
	"unicode/utf8"

	"storychain/core/events"
	"storychain/core/types"
)

var (
	errNilState             = errors.New("registry engine: state not configured")
	errNilLedger            = errors.New("registry engine: token ledger not configured")
	errInsufficientBalance  = errors.New("registry engine: insufficient balance")
	errCounterInconsistency = errors.New("registry engine: token counter behind existing stories")
)

// DefaultTokenURI is the base URI every minted token resolves to. No
// per-token URI is constructed; the metadata endpoint fans out by id itself.
const DefaultTokenURI = "https://storyregistry.example/api/token"

// engineState is the narrow persistence surface the engine mutates. All
// writes within one operation land in the same transaction, so a failing
// operation leaves every table untouched.
type engineState interface {
	StoryGet(tokenID uint64) (*Story, bool, error)
	StoryPut(story *Story) error
	LastTokenID() (uint64, error)
	SetLastTokenID(id uint64) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// TokenLedger is the external non-fungible-token capability the registry
// consumes. The registry never implements ownership itself; it only asks the
// ledger to mint, move, and resolve holders.
type TokenLedger interface {
	Mint(tokenID uint64, owner [20]byte) error
	Transfer(tokenID uint64, from [20]byte, to [20]byte) error
	OwnerOf(tokenID uint64) ([20]byte, bool, error)
}

// Engine wires the story registry business logic with persistence, the token
// ledger, and event emission.
type Engine struct {
	state   engineState
	ledger  TokenLedger
	emitter events.Emitter
	nowFn   func() int64
	baseURI string
}

// NewEngine constructs a registry engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		baseURI: DefaultTokenURI,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger configures the token ownership ledger used by the engine.
func (e *Engine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetBaseURI overrides the constant token URI.
func (e *Engine) SetBaseURI(uri string) {
	if uri == "" {
		e.baseURI = DefaultTokenURI
		return
	}
	e.baseURI = uri
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatTokenID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func validateStoryInput(title, description string, audioCID, imageCID []byte, royaltyPercent uint8) error {
	titleRunes := utf8.RuneCountInString(title)
	if titleRunes < MinTitleRunes || titleRunes > MaxTitleRunes {
		return fmt.Errorf("title must be %d-%d code points: %w", MinTitleRunes, MaxTitleRunes, ErrInvalidStory)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionRunes {
		return fmt.Errorf("description exceeds %d code points: %w", MaxDescriptionRunes, ErrInvalidStory)
	}
	if len(audioCID) > MaxCIDBytes || len(imageCID) > MaxCIDBytes {
		return fmt.Errorf("content identifier exceeds %d bytes: %w", MaxCIDBytes, ErrInvalidStory)
	}
	if royaltyPercent > MaxRoyaltyPercent {
		return fmt.Errorf("royalty percent exceeds %d: %w", MaxRoyaltyPercent, ErrInvalidStory)
	}
	return nil
}

// Mint validates the story input, allocates the next token id, persists the
// metadata, and assigns initial ownership to the caller. Validation happens
// before the counter advances, so a rejected mint never consumes an id.
func (e *Engine) Mint(caller [20]byte, title, description string, audioCID, imageCID []byte, royaltyPercent uint8) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if e.ledger == nil {
		return 0, errNilLedger
	}
	if err := validateStoryInput(title, description, audioCID, imageCID, royaltyPercent); err != nil {
		return 0, err
	}
	last, err := e.state.LastTokenID()
	if err != nil {
		return 0, err
	}
	tokenID := last + 1
	if _, exists, err := e.state.StoryGet(tokenID); err != nil {
		return 0, err
	} else if exists {
		return 0, errCounterInconsistency
	}
	story := &Story{
		TokenID:        tokenID,
		Title:          title,
		Description:    description,
		AudioCID:       append([]byte(nil), audioCID...),
		ImageCID:       append([]byte(nil), imageCID...),
		Creator:        caller,
		RoyaltyPercent: royaltyPercent,
		MintedAt:       e.now(),
	}
	if err := e.state.StoryPut(story); err != nil {
		return 0, err
	}
	if err := e.state.SetLastTokenID(tokenID); err != nil {
		return 0, err
	}
	if err := e.ledger.Mint(tokenID, caller); err != nil {
		return 0, err
	}
	e.emit(StoryMintedEvent(formatTokenID(tokenID), hexAddr(caller), title))
	return tokenID, nil
}

// Transfer moves ownership of a token from sender to recipient and pays the
// creator a royalty cut of the sender's liquid balance at transfer time. The
// royalty base is the wallet balance, not a sale price; no sale-price concept
// exists in this contract.
func (e *Engine) Transfer(caller [20]byte, tokenID uint64, sender [20]byte, recipient [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	story, ok, err := e.state.StoryGet(tokenID)
	if err != nil {
		return err
	}
	if !ok || story == nil {
		return ErrStoryNotFound
	}
	if caller != sender {
		return ErrUnauthorized
	}
	senderAccount, err := e.state.GetAccount(sender[:])
	if err != nil {
		return err
	}
	senderAccount = ensureAccount(senderAccount)
	royalty := new(big.Int).Mul(senderAccount.Balance, big.NewInt(int64(story.RoyaltyPercent)))
	royalty = royalty.Div(royalty, big.NewInt(100))
	if err := e.ledger.Transfer(tokenID, sender, recipient); err != nil {
		return err
	}
	if royalty.Sign() > 0 {
		senderAccount.Balance = new(big.Int).Sub(senderAccount.Balance, royalty)
		if err := e.state.PutAccount(sender[:], senderAccount); err != nil {
			return err
		}
		creatorAccount, err := e.state.GetAccount(story.Creator[:])
		if err != nil {
			return err
		}
		creatorAccount = ensureAccount(creatorAccount)
		creatorAccount.Balance = new(big.Int).Add(creatorAccount.Balance, royalty)
		if err := e.state.PutAccount(story.Creator[:], creatorAccount); err != nil {
			return err
		}
		e.emit(RoyaltyPaidEvent(formatTokenID(tokenID), hexAddr(sender), hexAddr(story.Creator), royalty.String()))
	}
	e.emit(StoryTransferredEvent(formatTokenID(tokenID), hexAddr(sender), hexAddr(recipient)))
	return nil
}

// Tip moves amount from the caller directly to the story's creator. Registry
// and ownership state stay untouched.
func (e *Engine) Tip(caller [20]byte, tokenID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	story, ok, err := e.state.StoryGet(tokenID)
	if err != nil {
		return err
	}
	if !ok || story == nil {
		return ErrStoryNotFound
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInsufficientFunds
	}
	callerAccount, err := e.state.GetAccount(caller[:])
	if err != nil {
		return err
	}
	callerAccount = ensureAccount(callerAccount)
	if callerAccount.Balance.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	callerAccount.Balance = new(big.Int).Sub(callerAccount.Balance, amount)
	if err := e.state.PutAccount(caller[:], callerAccount); err != nil {
		return err
	}
	creatorAccount, err := e.state.GetAccount(story.Creator[:])
	if err != nil {
		return err
	}
	creatorAccount = ensureAccount(creatorAccount)
	creatorAccount.Balance = new(big.Int).Add(creatorAccount.Balance, amount)
	if err := e.state.PutAccount(story.Creator[:], creatorAccount); err != nil {
		return err
	}
	e.emit(StoryTippedEvent(formatTokenID(tokenID), hexAddr(story.Creator), hexAddr(caller), amount.String()))
	return nil
}

// StoryDetails returns the stored record for the token id, if any.
func (e *Engine) StoryDetails(tokenID uint64) (*Story, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	story, ok, err := e.state.StoryGet(tokenID)
	if err != nil {
		return nil, false, err
	}
	if !ok || story == nil {
		return nil, false, nil
	}
	return story.Clone(), true, nil
}

// Owner resolves the current holder of the token id through the ledger.
func (e *Engine) Owner(tokenID uint64) ([20]byte, bool, error) {
	if e == nil || e.ledger == nil {
		return [20]byte{}, false, errNilLedger
	}
	return e.ledger.OwnerOf(tokenID)
}

// LastTokenID returns the id of the most recently minted token, or zero when
// nothing has been minted.
func (e *Engine) LastTokenID() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.LastTokenID()
}

// TokenURI returns the base metadata URI. Every token resolves to the same
// value regardless of id.
func (e *Engine) TokenURI(tokenID uint64) string {
	_ = tokenID
	if e == nil || e.baseURI == "" {
		return DefaultTokenURI
	}
	return e.baseURI
}
