package gateway

type ppToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ppPayment struct {
	Intent       string          `json:"intent"`
	Payer        ppPayer         `json:"payer"`
	Transactions []ppTransaction `json:"transactions"`
	RedirectURLs ppRedirectURLs  `json:"redirect_urls"`
}

type ppPayer struct {
	PaymentMethod string `json:"payment_method"`
}

type ppTransaction struct {
	Amount   ppAmount   `json:"amount"`
	ItemList ppItemList `json:"item_list"`
}

type ppAmount struct {
	Total    string    `json:"total"`
	Currency string    `json:"currency"`
	Details  ppDetails `json:"details"`
}

type ppDetails struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax,omitempty"`
}

type ppItemList struct {
	Items []ppItem `json:"items"`
}

type ppItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Tax      string `json:"tax,omitempty"`
}

type ppRedirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type ppLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type ppPaymentResp struct {
	ID    string   `json:"id"`
	State string   `json:"state"`
	Links []ppLink `json:"links"`
}

type ppExecute struct {
	PayerID string `json:"payer_id"`
}
