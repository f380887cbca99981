package domain

import "time"

// Estados del ciclo de vida de un envio.
const (
	ProductStatusPending   = "Pending"
	ProductStatusAccepted  = "Accepted"
	ProductStatusInTransit = "In Transit"
	ProductStatusDelivered = "Delivered"
	ProductStatusCancelled = "Cancelled"
)

// Product representa un envio publicado por un emprendedor. Mientras no
// tenga delivery partner asignado permanece disponible en el marketplace.
type Product struct {
	ID                   string    `json:"id"`
	EntrepreneurID       string    `json:"entrepreneurId"`
	EntrepreneurName     string    `json:"entrepreneurName"`
	ProductName          string    `json:"productName"`
	Quantity             string    `json:"quantity"`
	Weight               float64   `json:"weight"`
	Cost                 float64   `json:"cost"`
	FromLocation         string    `json:"fromLocation"`
	ToLocation           string    `json:"toLocation"`
	Status               string    `json:"status"`
	CurrentLocation      string    `json:"currentLocation,omitempty"`
	DeliveryPartnerID    string    `json:"deliveryPartnerId,omitempty"`
	DeliveryPartnerName  string    `json:"deliveryPartnerName,omitempty"`
	DeliveryPartnerPrice float64   `json:"deliveryPartnerPrice,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// ValidProductStatus valida transiciones solicitadas por el delivery partner.
func ValidProductStatus(status string) bool {
	switch status {
	case ProductStatusAccepted, ProductStatusInTransit, ProductStatusDelivered, ProductStatusCancelled:
		return true
	}
	return false
}
