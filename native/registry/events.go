package registry

import (
	"storychain/core/events"
	"storychain/core/types"
)

const (
	// EventTypeStoryMinted is emitted when a creator mints a new story token.
	EventTypeStoryMinted = "registry.story.minted"
	// EventTypeStoryTransferred is emitted when a token changes hands.
	EventTypeStoryTransferred = "registry.story.transferred"
	// EventTypeStoryTipped is emitted when a story's creator receives a tip.
	EventTypeStoryTipped = "registry.story.tipped"
	// EventTypeRoyaltyPaid is emitted when a transfer pays a royalty cut.
	EventTypeRoyaltyPaid = "registry.royalty.paid"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// StoryMintedEvent returns the structured event payload for a successful mint.
func StoryMintedEvent(tokenID string, creator string, title string) *types.Event {
	return &types.Event{
		Type: EventTypeStoryMinted,
		Attributes: map[string]string{
			"tokenId": tokenID,
			"creator": creator,
			"title":   title,
		},
	}
}

// StoryTransferredEvent captures an ownership change.
func StoryTransferredEvent(tokenID string, sender string, recipient string) *types.Event {
	return &types.Event{
		Type: EventTypeStoryTransferred,
		Attributes: map[string]string{
			"tokenId":   tokenID,
			"sender":    sender,
			"recipient": recipient,
		},
	}
}

// StoryTippedEvent captures a direct payment to a story's creator.
func StoryTippedEvent(tokenID string, creator string, tipper string, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeStoryTipped,
		Attributes: map[string]string{
			"tokenId": tokenID,
			"creator": creator,
			"tipper":  tipper,
			"amount":  amount,
		},
	}
}

// RoyaltyPaidEvent captures the royalty leg of a transfer.
func RoyaltyPaidEvent(tokenID string, sender string, creator string, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeRoyaltyPaid,
		Attributes: map[string]string{
			"tokenId": tokenID,
			"sender":  sender,
			"creator": creator,
			"amount":  amount,
		},
	}
}
