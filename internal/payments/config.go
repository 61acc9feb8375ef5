package payments

// BankAccount holds the receiving account shown to bank-transfer payers
type BankAccount struct {
	BankName       string `json:"bankName"`
	BankCode       string `json:"bankCode"`
	Agency         string `json:"agency"`
	Account        string `json:"account"`
	HolderName     string `json:"holderName"`
	HolderDocument string `json:"holderDocument"`
}

// MerchantConfig is the merchant identity used to build payment artifacts.
// It is resolved once per process and injected into the processors.
type MerchantConfig struct {
	PixKey            string
	Name              string
	City              string
	CardCheckoutURL   string
	BoletoDocumentURL string
	Bank              BankAccount
}

// DefaultMerchantConfig returns the storefront's production merchant data.
func DefaultMerchantConfig() MerchantConfig {
	return MerchantConfig{
		PixKey:            "026.815.561-55",
		Name:              "Marcos Antonio Magalhaes da Silva",
		City:              "SAO PAULO",
		CardCheckoutURL:   "https://www.mercadopago.com.br/checkout/v1/redirect?pref_id=",
		BoletoDocumentURL: "https://api.bb.com.br/boleto/",
		Bank: BankAccount{
			BankName:       "Banco do Brasil",
			BankCode:       "001",
			Agency:         "1873-2",
			Account:        "23195-9",
			HolderName:     "Marcos Antonio Magalhaes da Silva",
			HolderDocument: "026.815.561-55",
		},
	}
}
