package core

import (
	"log/slog"
	"math/big"
	"strconv"
	"sync"

	"storychain/core/events"
	"storychain/core/state"
	"storychain/core/types"
	"storychain/native/registry"
	"storychain/observability/metrics"
	"storychain/storage"
)

// Node owns the registry's shared state and serializes every public operation
// behind a single mutex, matching the host model where state-mutating calls
// never run concurrently. Each mutating call runs against a fresh state
// transaction: commit on success, discard on failure, so a failing operation
// leaves all tables exactly as they were.
type Node struct {
	mu      sync.Mutex
	db      storage.Database
	state   *state.Manager
	emitter events.Emitter
	baseURI string
	logger  *slog.Logger
	metrics *metrics.RegistryMetrics
}

// NewNode constructs a node over the provided database.
func NewNode(db storage.Database) *Node {
	return &Node{
		db:      db,
		state:   state.NewManager(db),
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		metrics: metrics.Registry(),
	}
}

// SetEmitter configures the emitter that receives events for committed
// operations.
func (n *Node) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		n.emitter = events.NoopEmitter{}
		return
	}
	n.emitter = emitter
}

// SetBaseURI overrides the constant token URI served by queries.
func (n *Node) SetBaseURI(uri string) { n.baseURI = uri }

// SetLogger overrides the node logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

// newEngine builds a registry engine bound to the supplied state view. Events
// are buffered in the returned recorder and forwarded only after commit.
func (n *Node) newEngine(view *state.Txn) (*registry.Engine, *events.Recorder) {
	recorder := &events.Recorder{}
	engine := registry.NewEngine()
	engine.SetState(view)
	engine.SetLedger(view)
	engine.SetEmitter(recorder)
	if n.baseURI != "" {
		engine.SetBaseURI(n.baseURI)
	}
	return engine, recorder
}

func (n *Node) flushEvents(recorder *events.Recorder) {
	for _, evt := range recorder.Events {
		n.emitter.Emit(evt)
	}
	n.observeValueFlow(recorder)
}

type payloadCarrier interface {
	Event() *types.Event
}

func (n *Node) observeValueFlow(recorder *events.Recorder) {
	for _, evt := range recorder.Events {
		carrier, ok := evt.(payloadCarrier)
		if !ok || carrier.Event() == nil {
			continue
		}
		payload := carrier.Event()
		amount, err := strconv.ParseFloat(payload.Attributes["amount"], 64)
		if err != nil {
			continue
		}
		switch payload.Type {
		case registry.EventTypeRoyaltyPaid:
			n.metrics.AddRoyalty(amount)
		case registry.EventTypeStoryTipped:
			n.metrics.AddTip(amount)
		}
	}
}

// RegistryMint mints a story token for the caller and returns the new id.
func (n *Node) RegistryMint(caller [20]byte, title, description string, audioCID, imageCID []byte, royaltyPercent uint8) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	txn := n.state.Begin()
	engine, recorder := n.newEngine(txn)
	tokenID, err := engine.Mint(caller, title, description, audioCID, imageCID, royaltyPercent)
	n.metrics.ObserveOperation("mint", err)
	if err != nil {
		txn.Discard()
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, err
	}
	n.flushEvents(recorder)
	n.metrics.SetLastTokenID(tokenID)
	n.logger.Info("story minted", slog.Uint64("tokenId", tokenID))
	return tokenID, nil
}

// RegistryTransfer moves token ownership and pays the creator royalty.
func (n *Node) RegistryTransfer(caller [20]byte, tokenID uint64, sender, recipient [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	txn := n.state.Begin()
	engine, recorder := n.newEngine(txn)
	err := engine.Transfer(caller, tokenID, sender, recipient)
	n.metrics.ObserveOperation("transfer", err)
	if err != nil {
		txn.Discard()
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	n.flushEvents(recorder)
	n.logger.Info("story transferred", slog.Uint64("tokenId", tokenID))
	return nil
}

// RegistryTip pays amount from the caller to the story's creator.
func (n *Node) RegistryTip(caller [20]byte, tokenID uint64, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	txn := n.state.Begin()
	engine, recorder := n.newEngine(txn)
	err := engine.Tip(caller, tokenID, amount)
	n.metrics.ObserveOperation("tip", err)
	if err != nil {
		txn.Discard()
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	n.flushEvents(recorder)
	n.logger.Info("story tipped", slog.Uint64("tokenId", tokenID))
	return nil
}

// RegistryStory returns the stored metadata for the token id, if any.
func (n *Node) RegistryStory(tokenID uint64) (*registry.Story, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.StoryGet(tokenID)
}

// RegistryOwner resolves the current holder of the token id.
func (n *Node) RegistryOwner(tokenID uint64) ([20]byte, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.OwnerOf(tokenID)
}

// RegistryLastTokenID returns the current token counter value.
func (n *Node) RegistryLastTokenID() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.LastTokenID()
}

// RegistryTokenURI returns the constant base URI for any token id.
func (n *Node) RegistryTokenURI(tokenID uint64) string {
	_ = tokenID
	if n.baseURI != "" {
		return n.baseURI
	}
	return registry.DefaultTokenURI
}

// FundAccount credits an externally-held balance. Genesis seeding and tests
// use it; the registry itself only moves existing funds.
func (n *Node) FundAccount(addr [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	account, err := n.state.GetAccount(addr[:])
	if err != nil {
		return err
	}
	if account == nil {
		account = &types.Account{Balance: big.NewInt(0)}
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return n.state.PutAccount(addr[:], account)
}

// BalanceOf reports the liquid balance held by the address.
func (n *Node) BalanceOf(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	account, err := n.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	if account == nil || account.Balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(account.Balance), nil
}
