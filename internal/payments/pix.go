package payments

import (
	"context"
	"encoding/base64"

	"broadcastmotion_payments/internal/models"
)

// PixCharge is a generated PIX copy-and-paste payload
type PixCharge struct {
	QrCode       string
	QrCodeBase64 string
	TxID         string
}

// PixTxID derives the PIX transaction id from a payment id.
func PixTxID(paymentID string) string {
	id := paymentID
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return "BM" + id
}

// BuildPixCharge assembles the BR Code payload for txID.
// The trailing CRC16 field is emitted empty.
func BuildPixCharge(cfg MerchantConfig, txID string) PixCharge {
	qrCode := "00020126580014br.gov.bcb.pix0136" + cfg.PixKey +
		"0208" + txID +
		"5204000053039865802BR5925" + cfg.Name +
		"6009" + cfg.City +
		"62070503***6304"

	return PixCharge{
		QrCode:       qrCode,
		QrCodeBase64: base64.StdEncoding.EncodeToString([]byte("QR_CODE_" + txID)),
		TxID:         txID,
	}
}

// PixProcessor issues PIX charges for the configured merchant key
type PixProcessor struct {
	cfg MerchantConfig
}

func NewPixProcessor(cfg MerchantConfig) *PixProcessor {
	return &PixProcessor{cfg: cfg}
}

func (p *PixProcessor) Process(ctx context.Context, payment models.Payment) (Result, error) {
	charge := BuildPixCharge(p.cfg, PixTxID(payment.ID))

	return Result{
		Status:          models.PaymentStatusPending,
		ExternalID:      ptr(charge.TxID),
		PixKey:          ptr(p.cfg.PixKey),
		PixQrCode:       ptr(charge.QrCode),
		PixQrCodeBase64: ptr(charge.QrCodeBase64),
		Response: map[string]interface{}{
			"pixQrCode":       charge.QrCode,
			"pixQrCodeBase64": charge.QrCodeBase64,
			"pixKey":          p.cfg.PixKey,
			"expiresAt":       payment.ExpiresAt,
		},
	}, nil
}
