package hcaptcha

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ivarnor/akidsy/internal/pkg/env"
)

const verifyURL = "https://hcaptcha.com/siteverify"

var httpClient = &http.Client{Timeout: 10 * time.Second}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks a captcha token from the registration form against the
// hCaptcha API. HCAPTCHA_SECRET must be configured.
func Verify(token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, errors.New("captcha token is empty")
	}

	secret := env.GetEnv("HCAPTCHA_SECRET", "")
	if secret == "" {
		return false, errors.New("HCAPTCHA_SECRET is not set")
	}

	resp, err := httpClient.PostForm(verifyURL, url.Values{
		"secret":   {secret},
		"response": {token},
	})
	if err != nil {
		return false, fmt.Errorf("captcha verify request failed: %w", err)
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("captcha verify response invalid: %w", err)
	}

	if !result.Success {
		if len(result.ErrorCodes) > 0 {
			return false, fmt.Errorf("captcha rejected: %s", strings.Join(result.ErrorCodes, ", "))
		}
		return false, errors.New("captcha rejected")
	}
	return true, nil
}
