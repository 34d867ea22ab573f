//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	jwttoken "anima/internal/jwt_token"
	id "anima/pkg/domain"
)

// TestContext carries state across the steps of one scenario.
type TestContext struct {
	baseURL string
	client  *http.Client
	tokens  *jwttoken.JWTService

	principals map[string]id.PrincipalID
	caller     string

	lastStatus int
	lastBody   []byte
	lastHeader http.Header

	memos  map[string]uint64
	assets map[string]uint64
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewTestContext targets the server at E2E_BASE_URL and signs tokens with the
// same JWT settings the server reads.
func NewTestContext() *TestContext {
	return &TestContext{
		baseURL: strings.TrimRight(getenv("E2E_BASE_URL", "http://localhost:8080"), "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		tokens: jwttoken.NewJWTService(
			getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			getenv("JWT_ISSUER", "anima"),
			getenv("JWT_AUDIENCE", "anima-api"),
		),
	}
}

func (tc *TestContext) reset() {
	tc.principals = map[string]id.PrincipalID{}
	tc.memos = map[string]uint64{}
	tc.assets = map[string]uint64{}
	tc.caller = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
}

func (tc *TestContext) principal(name string) id.PrincipalID {
	p, ok := tc.principals[name]
	if !ok {
		p = id.PrincipalID(uuid.New())
		tc.principals[name] = p
	}
	return p
}

func (tc *TestContext) do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.caller != "" {
		token, err := tc.tokens.GenerateAccessToken(tc.principal(tc.caller), time.Hour)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) field(name string) (any, error) {
	var decoded map[string]any
	if err := json.Unmarshal(tc.lastBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response %q: %w", tc.lastBody, err)
	}
	cur := any(decoded)
	for _, part := range strings.Split(name, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %v is not an object", name, cur)
		}
		cur, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("field %q missing in %s", name, tc.lastBody)
		}
	}
	return cur, nil
}
