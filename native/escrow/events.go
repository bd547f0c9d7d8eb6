package escrow

import (
	"encoding/hex"
	"strconv"

	"bidvault/core/types"
	"bidvault/crypto"
)

const (
	EventTypeInitialized  = "escrow.initialized"
	EventTypeDeposited    = "escrow.deposited"
	EventTypeBidPlaced    = "escrow.bid_placed"
	EventTypeBidCancelled = "escrow.bid_cancelled"
	EventTypeBidResolved  = "escrow.bid_resolved"
	EventTypeWithdrawn    = "escrow.withdrawn"
)

// escrowEvent adapts a typed event payload to the events.Event interface so
// collectors can recover the canonical attribute map.
type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

func escrowAttributes(esc *Escrow) map[string]string {
	attrs := make(map[string]string)
	if esc == nil {
		return attrs
	}
	attrs["owner"] = crypto.NewAddress(crypto.VaultPrefix, esc.Owner[:]).String()
	attrs["deposited"] = strconv.FormatUint(esc.DepositedAmount, 10)
	attrs["locked"] = strconv.FormatUint(esc.LockedAmount, 10)
	return attrs
}

func initializedEvent(esc *Escrow) escrowEvent {
	attrs := escrowAttributes(esc)
	if esc != nil {
		attrs["createdAt"] = strconv.FormatInt(esc.CreatedAt, 10)
	}
	return escrowEvent{evt: &types.Event{Type: EventTypeInitialized, Attributes: attrs}}
}

func depositedEvent(esc *Escrow, amt uint64) escrowEvent {
	attrs := escrowAttributes(esc)
	attrs["amount"] = strconv.FormatUint(amt, 10)
	return escrowEvent{evt: &types.Event{Type: EventTypeDeposited, Attributes: attrs}}
}

func withdrawnEvent(esc *Escrow, amt uint64) escrowEvent {
	attrs := escrowAttributes(esc)
	attrs["amount"] = strconv.FormatUint(amt, 10)
	return escrowEvent{evt: &types.Event{Type: EventTypeWithdrawn, Attributes: attrs}}
}

func bidEvent(eventType string, esc *Escrow, bid *Bid) escrowEvent {
	attrs := escrowAttributes(esc)
	if bid != nil {
		attrs["bidId"] = hex.EncodeToString(bid.ID[:])
		attrs["bidder"] = crypto.NewAddress(crypto.VaultPrefix, bid.Bidder[:]).String()
		attrs["amount"] = strconv.FormatUint(bid.Amount, 10)
		attrs["active"] = strconv.FormatBool(bid.Active)
	}
	return escrowEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}

func bidPlacedEvent(esc *Escrow, bid *Bid) escrowEvent {
	return bidEvent(EventTypeBidPlaced, esc, bid)
}

func bidCancelledEvent(esc *Escrow, bid *Bid) escrowEvent {
	return bidEvent(EventTypeBidCancelled, esc, bid)
}

func bidResolvedEvent(esc *Escrow, bid *Bid) escrowEvent {
	return bidEvent(EventTypeBidResolved, esc, bid)
}
