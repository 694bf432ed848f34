package startup

import (
	"errors"
	"strings"
	"testing"

	"github.com/loykin/proxyboot/internal/env"
)

func TestKeyPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		vars    []string
		wantErr error
		valid   bool
	}{
		{"missing", nil, ErrMissingCredential, false},
		{"blank", []string{"LITELLM_MASTER_KEY=   "}, ErrMissingCredential, false},
		{"malformed", []string{"LITELLM_MASTER_KEY=bad-key"}, ErrMalformedCredential, false},
		{"dev key", []string{"LITELLM_MASTER_KEY=sk-dev-test-key"}, nil, true},
		{"bare prefix", []string{"LITELLM_MASTER_KEY=sk-"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre, err := DefaultKeyPolicy().Validate(env.FromList(tt.vars))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if pre.KeyFormatValid != tt.valid {
				t.Fatalf("KeyFormatValid = %v, want %v", pre.KeyFormatValid, tt.valid)
			}
			if tt.wantErr != nil {
				var keyErr *KeyError
				if !errors.As(err, &keyErr) || keyErr.EnvName != "LITELLM_MASTER_KEY" {
					t.Fatalf("expected *KeyError for LITELLM_MASTER_KEY, got %#v", err)
				}
			}
		})
	}
}

func TestKeyPolicy_CustomEnvAndPrefix(t *testing.T) {
	p := KeyPolicy{EnvName: "PROXY_KEY", Prefix: "pk_"}
	e := env.FromList([]string{"PROXY_KEY=pk_live", "LITELLM_MASTER_KEY=sk-ignored"})

	pre, err := p.Validate(e)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if pre.MasterKey != "pk_live" || !pre.Present {
		t.Fatalf("unexpected preconditions %+v", pre)
	}
	if p.ValidKeyFormat("sk-dev-test-key") {
		t.Error("sk- key should fail a pk_ policy")
	}
}

func TestKeyPolicy_ValidKeyFormat(t *testing.T) {
	p := DefaultKeyPolicy()
	if !p.ValidKeyFormat("sk-dev-test-key") {
		t.Error("sk-dev-test-key must pass format validation")
	}
	for _, k := range []string{"", "bad-key", "SK-upper", " sk-leading-space"} {
		if p.ValidKeyFormat(k) {
			t.Errorf("%q should fail format validation", k)
		}
	}
}

func TestKeyError_Guidance(t *testing.T) {
	missing := &KeyError{EnvName: "LITELLM_MASTER_KEY", Prefix: "sk-", Err: ErrMissingCredential}
	text := strings.Join(missing.Guidance(), "\n")
	if !strings.Contains(text, "LITELLM_MASTER_KEY environment variable is required") || !strings.Contains(text, "openssl rand -hex 32") {
		t.Errorf("missing-key guidance = %q", text)
	}

	malformed := &KeyError{EnvName: "LITELLM_MASTER_KEY", Prefix: "sk-", Err: ErrMalformedCredential}
	text = strings.Join(malformed.Guidance(), "\n")
	if !strings.Contains(text, "must start with 'sk-'") || !strings.Contains(text, "sk-dev-test-key") {
		t.Errorf("malformed-key guidance = %q", text)
	}
	if !strings.Contains(malformed.Error(), `"sk-"`) {
		t.Errorf("Error() = %q", malformed.Error())
	}
}
