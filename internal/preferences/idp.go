package preferences

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// IdPConfig locates the identity provider's management API
type IdPConfig struct {
	Domain    string // host or base URL; https is assumed without a scheme
	Token     string
	Namespace string // key under user_metadata
	Timeout   time.Duration
}

// IdPStore keeps preferences in the identity provider's per-user metadata.
// Reads use GET /api/v2/users/{id}; writes PATCH the namespaced metadata key
// and leave the rest of the profile untouched.
type IdPStore struct {
	base      string
	token     string
	namespace string
	client    *http.Client
	logger    *slog.Logger
}

// NewIdPStore creates a store for cfg
func NewIdPStore(cfg IdPConfig, logger *slog.Logger) (*IdPStore, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("identity provider domain is required")
	}
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("metadata namespace is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	base := strings.TrimRight(cfg.Domain, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid identity provider domain: %w", err)
	}

	return &IdPStore{
		base:      base,
		token:     cfg.Token,
		namespace: cfg.Namespace,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With(slog.String("component", "preferences_idp")),
	}, nil
}

type userProfile struct {
	UserMetadata map[string]json.RawMessage `json:"user_metadata"`
}

func (s *IdPStore) userURL(userID string) string {
	return s.base + "/api/v2/users/" + url.PathEscape(userID)
}

func (s *IdPStore) Get(ctx context.Context, userID string) (Preferences, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userURL(userID), nil)
	if err != nil {
		return Preferences{}, loadError("idp", userID, err)
	}
	resp, err := s.do(req)
	if err != nil {
		return Preferences{}, loadError("idp", userID, err)
	}
	defer resp.Body.Close()

	var profile userProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Preferences{}, loadError("idp", userID, fmt.Errorf("decoding profile: %w", err))
	}

	raw, ok := profile.UserMetadata[s.namespace]
	if !ok || string(raw) == "null" {
		return Preferences{}.Clone(), nil
	}
	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return Preferences{}, loadError("idp", userID, fmt.Errorf("decoding %s metadata: %w", s.namespace, err))
	}
	return prefs.Clone(), nil
}

func (s *IdPStore) Set(ctx context.Context, userID string, prefs Preferences) error {
	body, err := json.Marshal(map[string]any{
		"user_metadata": map[string]Preferences{s.namespace: prefs.Clone()},
	})
	if err != nil {
		return saveError("idp", userID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.userURL(userID), bytes.NewReader(body))
	if err != nil {
		return saveError("idp", userID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return saveError("idp", userID, err)
	}
	resp.Body.Close()
	return nil
}

// do sends req with credentials and turns non-2xx answers into errors
func (s *IdPStore) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		s.logger.WarnContext(req.Context(), "identity provider rejected request",
			slog.String("method", req.Method),
			slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return resp, nil
}
