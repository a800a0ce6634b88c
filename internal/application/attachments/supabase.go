package attachments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseResolver signs object URLs through the Supabase storage HTTP API.
// SecretKey must be the service_role key.
type SupabaseResolver struct {
	BaseURL   string
	SecretKey string
	Bucket    string
	ExpiresIn int // seconds
	Client    *http.Client
}

type supabaseSignResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLCaps  string `json:"signedURL"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"`
}

func (c *SupabaseResolver) SignedURL(ctx context.Context, objectPath string) (string, error) {
	return c.sign(ctx, "object/sign", objectPath, map[string]interface{}{"expiresIn": c.expiresIn()})
}

func (c *SupabaseResolver) SignedUploadURL(ctx context.Context, objectPath string) (string, error) {
	return c.sign(ctx, "object/upload/sign", objectPath, map[string]interface{}{"expiresIn": c.expiresIn(), "upsert": false})
}

func (c *SupabaseResolver) expiresIn() int {
	if c.ExpiresIn > 0 {
		return c.ExpiresIn
	}
	return 3600
}

func (c *SupabaseResolver) sign(ctx context.Context, endpoint, objectPath string, body map[string]interface{}) (string, error) {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.BaseURL == "" {
		return "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return "", fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/%s/%s/%s", base, endpoint, c.Bucket, strings.TrimLeft(objectPath, "/"))

	bodyBytes, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		if (resp.StatusCode == 400 || resp.StatusCode == 403) && strings.Contains(bodyStr, "Invalid Compact JWS") {
			return "", fmt.Errorf("supabase storage requires the service_role key, not the anon key (body: %s)", bodyStr)
		}
		return "", fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}

	var data supabaseSignResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("supabase response decode: %w", err)
	}
	for _, u := range []string{data.SignedURL, data.SignedURLCaps, data.SignedURLSnake, data.URL} {
		if u == "" {
			continue
		}
		if strings.HasPrefix(u, "http") {
			return u, nil
		}
		// relative, e.g. /object/sign/bucket/path?token=...
		if !strings.HasPrefix(u, "/") {
			u = "/" + u
		}
		if !strings.HasPrefix(u, "/storage/v1") {
			u = "/storage/v1" + u
		}
		return base + u, nil
	}
	return "", fmt.Errorf("supabase returned no signed URL, body: %s", string(respBody))
}
