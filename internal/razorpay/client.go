// Package razorpay реализует минимальный клиент Razorpay API:
// создание и отмена подписок, проверка подписи вебхуков.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

type Client struct {
	keyID      string
	keySecret  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент Razorpay.
func NewClient(keyID, keySecret string) *Client {
	return &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		apiURL:     "https://api.razorpay.com/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured сообщает, заданы ли учетные данные шлюза.
func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	url := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.keyID + ":" + c.keySecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreateSubscription отправляет запрос на создание подписки по плану.
func (c *Client) CreateSubscription(ctx context.Context, reqParams CreateSubscriptionRequest) (*SubscriptionResponse, error) {
	req, err := c.newRequest(ctx, "POST", "/subscriptions", reqParams)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var subResp SubscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&subResp); err != nil {
		return nil, err
	}
	return &subResp, nil
}

// CancelSubscription отменяет подписку немедленно (не в конце цикла).
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	body := map[string]int{"cancel_at_cycle_end": 0}
	req, err := c.newRequest(ctx, "POST", "/subscriptions/"+subscriptionID+"/cancel", body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status: " + resp.Status)
	}
	return nil
}

// VerifyWebhookSignature проверяет подпись вебхука: HMAC-SHA256 от сырого
// тела запроса, hex-кодировка, сравнение за постоянное время.
// Пустая подпись или ненастроенный секрет означают отказ.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
