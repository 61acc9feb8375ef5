package services

import (
	"context"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/payments"
)

// MidtransService is the card acquirer and status source backed by Midtrans Snap and Core API
type MidtransService struct {
	SnapClient snap.Client
	CoreClient coreapi.Client
	clientKey  string
	snapJSURL  string
}

// NewMidtransService builds the clients; clientKey is handed to the payer's browser for Snap.js.
func NewMidtransService(serverKey, clientKey string, production bool) *MidtransService {
	env := midtrans.Sandbox
	snapJSURL := "https://app.sandbox.midtrans.com/snap/snap.js"
	if production {
		env = midtrans.Production
		snapJSURL = "https://app.midtrans.com/snap/snap.js"
	}

	var s snap.Client
	s.New(serverKey, env)

	var c coreapi.Client
	c.New(serverKey, env)

	return &MidtransService{
		SnapClient: s,
		CoreClient: c,
		clientKey:  clientKey,
		snapJSURL:  snapJSURL,
	}
}

// CreateCheckout opens a Snap checkout whose order id is the payment id.
func (s *MidtransService) CreateCheckout(ctx context.Context, payment models.Payment) (payments.CardCheckout, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  payment.ID,
			GrossAmt: payment.Amount.Round(0).IntPart(),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: payment.PayerName,
			Email: payment.PayerEmail,
		},
		EnabledPayments: []snap.SnapPaymentType{snap.PaymentTypeCreditCard},
	}
	if payment.PayerPhone != nil {
		req.CustomerDetail.Phone = *payment.PayerPhone
	}

	resp, err := s.SnapClient.CreateTransaction(req)
	if err != nil {
		return payments.CardCheckout{}, fmt.Errorf("midtrans create transaction error: %v", err.GetMessage())
	}

	extra := map[string]interface{}{
		"snapToken": resp.Token,
	}
	if s.clientKey != "" {
		extra["snapClientKey"] = s.clientKey
		extra["snapJsUrl"] = s.snapJSURL
	}

	return payments.CardCheckout{
		ExternalID:  payment.ID,
		RedirectURL: resp.RedirectURL,
		Extra:       extra,
	}, nil
}

// CheckStatus queries the Core API for the order's transaction status.
func (s *MidtransService) CheckStatus(ctx context.Context, payment models.Payment) (models.PaymentStatus, error) {
	resp, err := s.CoreClient.CheckTransaction(payment.ID)
	if err != nil {
		return payment.Status, fmt.Errorf("midtrans check transaction error: %v", err.GetMessage())
	}

	status, ok := payments.MidtransStatus(resp.TransactionStatus, resp.FraudStatus)
	if !ok {
		return payment.Status, nil
	}
	return status, nil
}
