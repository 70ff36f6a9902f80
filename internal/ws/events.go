package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pasarlink/storefront/internal/enum"
)

type orderPlacedPayload struct {
	OrderID   uuid.UUID `json:"order_id"`
	BuyerShop string    `json:"buyer_shop"`
	ItemCount int       `json:"item_count"`
}

type orderItemUpdatedPayload struct {
	ItemID  uuid.UUID `json:"item_id"`
	OrderID uuid.UUID `json:"order_id"`
	Status  string    `json:"status"`
}

// OrderPlacedEvent notifies a seller that a checkout created items for them.
func OrderPlacedEvent(orderID uuid.UUID, buyerShop string, itemCount int) Event {
	payload, _ := json.Marshal(orderPlacedPayload{
		OrderID:   orderID,
		BuyerShop: buyerShop,
		ItemCount: itemCount,
	})
	return Event{Type: enum.EventOrderPlaced, Payload: payload}
}

// OrderItemUpdatedEvent notifies the buyer that an item changed status.
func OrderItemUpdatedEvent(itemID, orderID uuid.UUID, status string) Event {
	payload, _ := json.Marshal(orderItemUpdatedPayload{
		ItemID:  itemID,
		OrderID: orderID,
		Status:  status,
	})
	return Event{Type: enum.EventOrderItemUpdated, Payload: payload}
}
