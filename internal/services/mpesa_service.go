package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	mpesaSandboxURL    = "https://sandbox.safaricom.co.ke"
	mpesaProductionURL = "https://api.safaricom.co.ke"

	mpesaTimestampLayout = "20060102150405"
	mpesaTransactionType = "CustomerPayBillOnline"

	// MpesaResultSuccess is the ResultCode of a successful STK callback.
	MpesaResultSuccess = 0
)

// MpesaConfig holds Daraja API credentials.
type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Environment    string
	// BaseURL, when set, replaces the environment-derived endpoint.
	BaseURL string
}

// GatewayAuthError reports a failed client-credentials exchange.
type GatewayAuthError struct {
	Status int
	Err    error
}

func (e *GatewayAuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("mpesa auth failed: status %d", e.Status)
	}
	return fmt.Sprintf("mpesa auth failed: %v", e.Err)
}

func (e *GatewayAuthError) Unwrap() error { return e.Err }

// PushResult is the tagged outcome of an STK push submission. Exactly one of
// the success fields or Error is meaningful, depending on Success.
type PushResult struct {
	Success             bool
	CheckoutRequestID   string
	MerchantRequestID   string
	ResponseCode        string
	ResponseDescription string
	Error               string
}

// MpesaClient talks to the Safaricom Daraja API. It keeps no state between calls.
type MpesaClient struct {
	cfg        MpesaConfig
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

func NewMpesaClient(cfg MpesaConfig) *MpesaClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = mpesaSandboxURL
		if strings.EqualFold(cfg.Environment, "production") {
			baseURL = mpesaProductionURL
		}
	}

	return &MpesaClient{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// BaseURL exposes the resolved gateway endpoint.
func (c *MpesaClient) BaseURL() string {
	return c.baseURL
}

type mpesaAuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken exchanges the consumer key and secret for a bearer token.
func (c *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", &GatewayAuthError{Err: err}
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GatewayAuthError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GatewayAuthError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &GatewayAuthError{Status: resp.StatusCode}
	}

	var authResp mpesaAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", &GatewayAuthError{Err: fmt.Errorf("unmarshal auth response: %w", err)}
	}
	if authResp.AccessToken == "" {
		return "", &GatewayAuthError{Err: errors.New("auth response missing access_token")}
	}

	return authResp.AccessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// Password computes base64(shortcode + passkey + timestamp).
func (c *MpesaClient) Password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}

// STKPush asks the gateway to prompt phone for amount, tagged with reference.
// It never returns an error: transport, auth and provider rejections all come
// back as a PushResult with Success false.
func (c *MpesaClient) STKPush(ctx context.Context, phone string, amount float64, reference string) PushResult {
	start := time.Now()
	result := c.stkPush(ctx, phone, amount, reference)
	observeGatewayCall("stk_push", result.Success, time.Since(start))
	return result
}

func (c *MpesaClient) stkPush(ctx context.Context, phone string, amount float64, reference string) PushResult {
	token, err := c.AccessToken(ctx)
	if err != nil {
		log.Printf("[MPesa] access token error: %v", err)
		return PushResult{Error: "Failed to get M-Pesa token"}
	}

	timestamp := c.now().UTC().Format(mpesaTimestampLayout)
	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.Password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   mpesaTransactionType,
		Amount:            int64(math.Round(amount)),
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   "Purchase " + reference,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return PushResult{Error: "Failed to initiate payment"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return PushResult{Error: "Failed to initiate payment"}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[MPesa] STK push request error: %v", err)
		return PushResult{Error: "Failed to initiate payment"}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var pushResp stkPushResponse
	decodeErr := json.Unmarshal(respBody, &pushResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[MPesa] STK push rejected: status %d, body: %s", resp.StatusCode, string(respBody))
		if decodeErr == nil && pushResp.ErrorMessage != "" {
			return PushResult{Error: pushResp.ErrorMessage}
		}
		return PushResult{Error: "Failed to initiate payment"}
	}
	if decodeErr != nil {
		log.Printf("[MPesa] STK push response unmarshal: %v", decodeErr)
		return PushResult{Error: "Failed to initiate payment"}
	}
	if pushResp.ResponseCode != "" && pushResp.ResponseCode != "0" {
		reason := pushResp.ResponseDescription
		if reason == "" {
			reason = "Failed to initiate payment"
		}
		return PushResult{ResponseCode: pushResp.ResponseCode, Error: reason}
	}
	if pushResp.CheckoutRequestID == "" {
		return PushResult{Error: "Gateway response missing CheckoutRequestID"}
	}

	return PushResult{
		Success:             true,
		CheckoutRequestID:   pushResp.CheckoutRequestID,
		MerchantRequestID:   pushResp.MerchantRequestID,
		ResponseCode:        pushResp.ResponseCode,
		ResponseDescription: pushResp.ResponseDescription,
	}
}
