package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestParseOpenAIRateLimitHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected RateLimitInfo
	}{
		{
			name:     "empty_headers",
			headers:  map[string]string{},
			expected: RateLimitInfo{},
		},
		{
			name:     "retry_after_seconds",
			headers:  map[string]string{"Retry-After": "30"},
			expected: RateLimitInfo{RetryAfter: 30 * time.Second},
		},
		{
			name:     "retry_after_invalid",
			headers:  map[string]string{"Retry-After": "invalid"},
			expected: RateLimitInfo{},
		},
		{
			name:     "token_reset_priority_over_request",
			headers:  map[string]string{"x-ratelimit-reset-tokens": "1640995200", "x-ratelimit-reset-requests": "1640995300"},
			expected: RateLimitInfo{ResetTime: 1640995200},
		},
		{
			name: "complete_openai_headers",
			headers: map[string]string{
				"Retry-After":                    "60",
				"x-ratelimit-reset-tokens":       "1640995200",
				"x-ratelimit-remaining-requests": "50",
				"x-ratelimit-remaining-tokens":   "25000",
			},
			expected: RateLimitInfo{
				RetryAfter:        60 * time.Second,
				ResetTime:         1640995200,
				RequestsRemaining: 50,
				TokensRemaining:   25000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for key, value := range tt.headers {
				headers.Set(key, value)
			}

			result := ParseOpenAIHeaders(headers)

			if result.RetryAfter != tt.expected.RetryAfter {
				t.Errorf("RetryAfter = %v, want %v", result.RetryAfter, tt.expected.RetryAfter)
			}
			if result.ResetTime != tt.expected.ResetTime {
				t.Errorf("ResetTime = %d, want %d", result.ResetTime, tt.expected.ResetTime)
			}
			if result.RequestsRemaining != tt.expected.RequestsRemaining {
				t.Errorf("RequestsRemaining = %d, want %d", result.RequestsRemaining, tt.expected.RequestsRemaining)
			}
			if result.TokensRemaining != tt.expected.TokensRemaining {
				t.Errorf("TokensRemaining = %d, want %d", result.TokensRemaining, tt.expected.TokensRemaining)
			}
		})
	}
}

func TestParseAnthropicRateLimitHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected RateLimitInfo
	}{
		{
			name:     "empty_headers",
			headers:  map[string]string{},
			expected: RateLimitInfo{},
		},
		{
			name:     "retry_after_seconds",
			headers:  map[string]string{"retry-after": "45"},
			expected: RateLimitInfo{RetryAfter: 45 * time.Second},
		},
		{
			name:     "input_tokens_reset_priority",
			headers:  map[string]string{"anthropic-ratelimit-input-tokens-reset": "2021-12-31T23:59:59Z", "anthropic-ratelimit-output-tokens-reset": "2021-12-31T23:59:58Z"},
			expected: RateLimitInfo{ResetTime: 1640995199},
		},
		{
			name:     "reset_time_invalid_rfc3339",
			headers:  map[string]string{"anthropic-ratelimit-input-tokens-reset": "invalid-date"},
			expected: RateLimitInfo{},
		},
		{
			name: "complete_anthropic_headers",
			headers: map[string]string{
				"retry-after":                                 "30",
				"anthropic-ratelimit-input-tokens-reset":      "2021-12-31T23:59:59Z",
				"anthropic-ratelimit-requests-remaining":      "25",
				"anthropic-ratelimit-input-tokens-remaining":  "75000",
				"anthropic-ratelimit-output-tokens-remaining": "25000",
			},
			expected: RateLimitInfo{
				RetryAfter:            30 * time.Second,
				ResetTime:             1640995199,
				RequestsRemaining:     25,
				InputTokensRemaining:  75000,
				OutputTokensRemaining: 25000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for key, value := range tt.headers {
				headers.Set(key, value)
			}

			result := ParseAnthropicHeaders(headers)

			if result.RetryAfter != tt.expected.RetryAfter {
				t.Errorf("RetryAfter = %v, want %v", result.RetryAfter, tt.expected.RetryAfter)
			}
			if result.ResetTime != tt.expected.ResetTime {
				t.Errorf("ResetTime = %d, want %d", result.ResetTime, tt.expected.ResetTime)
			}
			if result.RequestsRemaining != tt.expected.RequestsRemaining {
				t.Errorf("RequestsRemaining = %d, want %d", result.RequestsRemaining, tt.expected.RequestsRemaining)
			}
			if result.InputTokensRemaining != tt.expected.InputTokensRemaining {
				t.Errorf("InputTokensRemaining = %d, want %d", result.InputTokensRemaining, tt.expected.InputTokensRemaining)
			}
			if result.OutputTokensRemaining != tt.expected.OutputTokensRemaining {
				t.Errorf("OutputTokensRemaining = %d, want %d", result.OutputTokensRemaining, tt.expected.OutputTokensRemaining)
			}
		})
	}
}
