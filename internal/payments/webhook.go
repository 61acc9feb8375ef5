package payments

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"broadcastmotion_payments/internal/models"
)

var (
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrMalformedNotification = errors.New("malformed webhook notification")
)

// WebhookSecretHeader carries the shared secret of simulated gateway callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// Notification is a gateway callback reduced to what the lifecycle needs
type Notification struct {
	// PaymentRef is our payment id when the gateway echoes it back.
	PaymentRef string
	ExternalID string
	Status     models.PaymentStatus
	RawStatus  string
}

// WebhookParser authenticates and decodes callbacks from one gateway
type WebhookParser interface {
	Provider() models.PaymentGateway
	Parse(header http.Header, body []byte) (Notification, error)
}

// SimulatedWebhookParser accepts {paymentId, externalId, status} bodies signed with a shared secret
type SimulatedWebhookParser struct {
	secret string
}

func NewSimulatedWebhookParser(secret string) *SimulatedWebhookParser {
	return &SimulatedWebhookParser{secret: secret}
}

func (p *SimulatedWebhookParser) Provider() models.PaymentGateway {
	return models.PaymentGatewaySimulated
}

func (p *SimulatedWebhookParser) Parse(header http.Header, body []byte) (Notification, error) {
	given := header.Get(WebhookSecretHeader)
	if p.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(p.secret)) != 1 {
		return Notification{}, ErrInvalidSignature
	}

	var payload struct {
		PaymentID  string `json:"paymentId"`
		ExternalID string `json:"externalId"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}

	status := models.PaymentStatus(strings.ToUpper(payload.Status))
	if !status.Valid() {
		return Notification{}, fmt.Errorf("%w: unknown status %q", ErrMalformedNotification, payload.Status)
	}
	if payload.PaymentID == "" && payload.ExternalID == "" {
		return Notification{}, fmt.Errorf("%w: missing payment reference", ErrMalformedNotification)
	}

	return Notification{
		PaymentRef: payload.PaymentID,
		ExternalID: payload.ExternalID,
		Status:     status,
		RawStatus:  payload.Status,
	}, nil
}

// MidtransNotification is the HTTP notification body posted by Midtrans
type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

// MidtransSignature is SHA512(order_id + status_code + gross_amount + server_key), hex encoded.
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// MidtransStatus maps a Midtrans transaction status onto the payment lifecycle.
// ok is false for statuses that carry no lifecycle information.
func MidtransStatus(transactionStatus, fraudStatus string) (status models.PaymentStatus, ok bool) {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return models.PaymentStatusProcessing, true
		}
		return models.PaymentStatusCompleted, true
	case "settlement":
		return models.PaymentStatusCompleted, true
	case "pending":
		return models.PaymentStatusPending, true
	case "deny", "cancel", "failure":
		return models.PaymentStatusFailed, true
	case "expire":
		return models.PaymentStatusExpired, true
	case "refund", "partial_refund":
		return models.PaymentStatusRefunded, true
	case "chargeback", "partial_chargeback":
		return models.PaymentStatusChargeback, true
	default:
		return "", false
	}
}

// MidtransWebhookParser verifies Midtrans notifications against the server key
type MidtransWebhookParser struct {
	serverKey string
}

func NewMidtransWebhookParser(serverKey string) *MidtransWebhookParser {
	return &MidtransWebhookParser{serverKey: serverKey}
}

func (p *MidtransWebhookParser) Provider() models.PaymentGateway {
	return models.PaymentGatewayMidtrans
}

func (p *MidtransWebhookParser) Parse(header http.Header, body []byte) (Notification, error) {
	var n MidtransNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrMalformedNotification, err)
	}
	if n.OrderID == "" {
		return Notification{}, fmt.Errorf("%w: missing order_id", ErrMalformedNotification)
	}

	expected := MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, p.serverKey)
	if p.serverKey == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		return Notification{}, ErrInvalidSignature
	}

	status, ok := MidtransStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		return Notification{}, fmt.Errorf("%w: unknown transaction_status %q", ErrMalformedNotification, n.TransactionStatus)
	}

	return Notification{
		PaymentRef: n.OrderID,
		ExternalID: n.TransactionID,
		Status:     status,
		RawStatus:  n.TransactionStatus,
	}, nil
}
