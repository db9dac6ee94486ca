package secrets

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const awsService = "secretsmanager"

// AWSSource reads SecretString from AWS Secrets Manager, signing the call
// with SigV4 directly so no SDK dependency is pulled in for one request.
type AWSSource struct {
	endpoint     string
	region       string
	accessKey    string
	secretKey    string
	sessionToken string
	secretID     string
	httpClient   *http.Client
	clock        func() time.Time
}

func NewAWSSource(endpoint, region, accessKey, secretKey, sessionToken, secretID string) *AWSSource {
	if endpoint == "" && region != "" {
		endpoint = "https://secretsmanager." + region + ".amazonaws.com"
	}
	return &AWSSource{
		endpoint:     strings.TrimRight(endpoint, "/"),
		region:       region,
		accessKey:    accessKey,
		secretKey:    secretKey,
		sessionToken: sessionToken,
		secretID:     secretID,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		clock:        time.Now,
	}
}

func (s *AWSSource) Fetch(ctx context.Context) (string, error) {
	if s == nil {
		return "", errors.New("aws source is nil")
	}
	if s.endpoint == "" || s.region == "" || s.accessKey == "" || s.secretKey == "" {
		return "", errors.New("aws source missing configuration")
	}
	if s.secretID == "" {
		return "", errors.New("aws secret id is required")
	}
	body, err := json.Marshal(map[string]string{"SecretId": s.secretID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", "secretsmanager.GetSecretValue")
	req.Header.Set("X-Amz-Date", s.clock().UTC().Format("20060102T150405Z"))
	if s.sessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", s.sessionToken)
	}
	if err := s.sign(req, body); err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("secrets manager call failed: status %d", resp.StatusCode)
	}
	var out struct {
		SecretString string `json:"SecretString"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	if out.SecretString == "" {
		return "", errors.New("secret string missing")
	}
	return out.SecretString, nil
}

func (s *AWSSource) sign(req *http.Request, payload []byte) error {
	host := req.URL.Host
	if host == "" {
		return errors.New("aws host missing")
	}
	req.Header.Set("Host", host)

	amzDate := req.Header.Get("X-Amz-Date")
	date := amzDate[:8]

	canonicalHeaders, signedHeaders := canonicalizeHeaders(req.Header)
	canonicalRequest := strings.Join([]string{
		req.Method,
		"/",
		"",
		canonicalHeaders,
		signedHeaders,
		sha256Hex(payload),
	}, "\n")

	scope := date + "/" + s.region + "/" + awsService + "/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveSigningKey(s.secretKey, date, s.region)
	signature := hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		s.accessKey, scope, signedHeaders, signature,
	))
	return nil
}

func canonicalizeHeaders(headers http.Header) (string, string) {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, strings.ToLower(key))
	}
	sort.Strings(keys)
	var canonical strings.Builder
	for _, key := range keys {
		values := headers.Values(key)
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
		canonical.WriteString(key)
		canonical.WriteString(":")
		canonical.WriteString(strings.Join(values, ","))
		canonical.WriteString("\n")
	}
	return canonical.String(), strings.Join(keys, ";")
}

func deriveSigningKey(secret, date, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(awsService))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
