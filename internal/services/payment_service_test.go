package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broadcastmotion_payments/internal/models"
	"broadcastmotion_payments/internal/payments"
	"broadcastmotion_payments/internal/testutil"
)

func validRequest(templateID string, method models.PaymentMethod, amount string) CreatePaymentRequest {
	return CreatePaymentRequest{
		TemplateID:    templateID,
		PaymentMethod: method,
		Amount:        decimal.RequireFromString(amount),
		PayerName:     "Maria Souza",
		PayerEmail:    "maria@example.com",
		PayerDocument: "12345678901",
	}
}

func TestCreatePaymentPix(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, env.db, "Lower Thirds Pack", "50")

	result, err := env.paymentService().CreatePayment(context.Background(), ownerOf(user), validRequest(template.ID, models.PaymentMethodPix, "50"))
	require.NoError(t, err)

	p := result.Payment
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	require.NotNil(t, p.PixQrCode)
	assert.NotEmpty(t, *p.PixQrCode)
	require.NotNil(t, p.ExpiresAt)
	assert.Equal(t, 30*time.Minute, p.ExpiresAt.Sub(p.CreatedAt))
	assert.True(t, p.Amount.Equal(p.GrossAmount))
	assert.True(t, p.FeeAmount.IsZero())
	assert.True(t, p.NetAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "Template purchase: Lower Thirds Pack", p.Description)
	assert.Equal(t, "026.815.561-55", result.Response["pixKey"])
	assert.Equal(t, *p.PixQrCode, result.Response["pixQrCode"])

	stored := env.reload(t, p.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	require.NotNil(t, stored.ExternalID)
	assert.Equal(t, payments.PixTxID(p.ID), *stored.ExternalID)
	assert.Equal(t, *p.PixQrCode, *stored.PixQrCode)

	var txs []models.Transaction
	require.NoError(t, env.db.Where("payment_id = ?", p.ID).Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionTypePurchase, txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "Payment created - PIX", txs[0].Description)
}

func TestCreatePaymentBoleto(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, env.db, "Logo Reveal", "200")

	result, err := env.paymentService().CreatePayment(context.Background(), ownerOf(user), validRequest(template.ID, models.PaymentMethodBoleto, "200"))
	require.NoError(t, err)

	p := result.Payment
	require.NotNil(t, p.DueDate)
	assert.Equal(t, p.CreatedAt.Add(72*time.Hour), *p.DueDate)
	require.NotNil(t, p.BoletoBarcode)
	assert.Equal(t, fmt.Sprintf("00190000090%s%d", "0000020000", p.DueDate.Unix()), *p.BoletoBarcode)
	assert.True(t, p.FeeAmount.Equal(decimal.RequireFromString("2.99")))
	assert.True(t, p.NetAmount.Equal(decimal.RequireFromString("197.01")))
	assert.Equal(t, *p.BoletoURL, result.Response["boletoUrl"])
}

func TestCreatePaymentCardStartsProcessing(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, env.db, "Transitions", "100")

	result, err := env.paymentService().CreatePayment(context.Background(), ownerOf(user), validRequest(template.ID, models.PaymentMethodCreditCard, "100"))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusProcessing, result.Payment.Status)
	assert.True(t, result.Payment.FeeAmount.Equal(decimal.RequireFromString("4.38")))
	assert.Equal(t, 24*time.Hour, result.Payment.ExpiresAt.Sub(result.Payment.CreatedAt))
	assert.Contains(t, result.Response["redirectUrl"], "pref_id=MP_")
	assert.Equal(t, models.PaymentStatusProcessing, env.reload(t, result.Payment.ID).Status)
}

func TestCreatePaymentBankTransfer(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, env.db, "Titles", "80")

	result, err := env.paymentService().CreatePayment(context.Background(), ownerOf(user), validRequest(template.ID, models.PaymentMethodBankTransfer, "80"))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, result.Payment.Status)
	assert.Nil(t, result.Payment.ExternalID)
	assert.Equal(t, payments.DefaultMerchantConfig().Bank, result.Response["bankData"])
}

func TestCreatePaymentValidation(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, env.db, "Titles", "80")
	svc := env.paymentService()

	tests := []struct {
		name   string
		mutate func(r *CreatePaymentRequest)
		field  string
	}{
		{name: "amount below minimum", mutate: func(r *CreatePaymentRequest) { r.Amount = decimal.RequireFromString("9.99") }, field: "amount"},
		{name: "amount above maximum", mutate: func(r *CreatePaymentRequest) { r.Amount = decimal.NewFromInt(10001) }, field: "amount"},
		{name: "unknown method", mutate: func(r *CreatePaymentRequest) { r.PaymentMethod = "CRYPTO" }, field: "paymentMethod"},
		{name: "short payer name", mutate: func(r *CreatePaymentRequest) { r.PayerName = "M" }, field: "payerName"},
		{name: "invalid email", mutate: func(r *CreatePaymentRequest) { r.PayerEmail = "not-an-email" }, field: "payerEmail"},
		{name: "short document", mutate: func(r *CreatePaymentRequest) { r.PayerDocument = "1234" }, field: "payerDocument"},
		{name: "missing template id", mutate: func(r *CreatePaymentRequest) { r.TemplateID = "" }, field: "templateId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(template.ID, models.PaymentMethodPix, "50")
			tt.mutate(&req)

			_, err := svc.CreatePayment(context.Background(), ownerOf(user), req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Details))
			for _, d := range verr.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePaymentErrors(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.UserTypeCustomer)
	svc := env.paymentService()

	_, err := svc.CreatePayment(context.Background(), Actor{}, validRequest("any", models.PaymentMethodPix, "50"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.CreatePayment(context.Background(), ownerOf(user), validRequest("missing-template", models.PaymentMethodPix, "50"))
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

type brokenProcessor struct{}

func (brokenProcessor) Process(ctx context.Context, p models.Payment) (payments.Result, error) {
	return payments.Result{}, errors.New("gateway timeout")
}

func TestCreatePaymentProcessorFailureMarksPaymentFailed(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, env.db, "Titles", "80")

	svc := env.paymentService()
	svc.dispatcher.Register(models.PaymentMethodPix, brokenProcessor{})

	_, err := svc.CreatePayment(context.Background(), ownerOf(user), validRequest(template.ID, models.PaymentMethodPix, "50"))
	require.ErrorContains(t, err, "gateway timeout")

	var stored []models.Payment
	require.NoError(t, env.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, models.PaymentStatusFailed, stored[0].Status)

	var txCount int64
	require.NoError(t, env.db.Model(&models.Transaction{}).Count(&txCount).Error)
	assert.Zero(t, txCount)
}

func TestCreatePaymentIsNotIdempotent(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, models.UserTypeCustomer)
	template := testutil.CreateTemplate(t, env.db, "Titles", "80")
	svc := env.paymentService()
	req := validRequest(template.ID, models.PaymentMethodPix, "50")

	first, err := svc.CreatePayment(context.Background(), ownerOf(user), req)
	require.NoError(t, err)
	second, err := svc.CreatePayment(context.Background(), ownerOf(user), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Payment.ID, second.Payment.ID)
}

func TestCreatePaymentRequestAmountDecoding(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "integer", body: `{"amount":150}`, want: "150"},
		{name: "fraction", body: `{"amount":129.99}`, want: "129.99"},
		{name: "missing", body: `{"templateId":"tpl"}`, want: "0"},
		{name: "null", body: `{"amount":null}`, want: "0"},
		{name: "string", body: `{"amount":"150"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreatePaymentRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				var typeErr *json.UnmarshalTypeError
				require.ErrorAs(t, err, &typeErr)
				assert.Equal(t, "amount", typeErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Amount.String())
		})
	}

	var req CreatePaymentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"templateId":"tpl","paymentMethod":"PIX","payerName":"Ana"}`), &req))
	assert.Equal(t, "tpl", req.TemplateID)
	assert.Equal(t, models.PaymentMethodPix, req.PaymentMethod)
	assert.Equal(t, "Ana", req.PayerName)
}
