package startup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/env"
	"github.com/loykin/proxyboot/internal/util"
)

var (
	// ErrMissingCredential means the master key variable is unset or blank.
	ErrMissingCredential = errors.New("master key is not set")
	// ErrMalformedCredential means the master key lacks the required prefix.
	ErrMalformedCredential = errors.New("master key does not have the required prefix")
)

// KeyPolicy says where the master key lives and what it must look like.
type KeyPolicy struct {
	EnvName string
	Prefix  string
}

// DefaultKeyPolicy is LITELLM_MASTER_KEY with the "sk-" prefix.
func DefaultKeyPolicy() KeyPolicy {
	return KeyPolicy{EnvName: constants.DefaultMasterKeyEnv, Prefix: constants.DefaultMasterKeyPrefix}
}

func (p KeyPolicy) normalized() KeyPolicy {
	return KeyPolicy{
		EnvName: util.TrimWithDefault(p.EnvName, constants.DefaultMasterKeyEnv),
		Prefix:  p.Prefix,
	}
}

// Preconditions is what the key checks observed.
type Preconditions struct {
	MasterKey      string
	Present        bool
	KeyFormatValid bool
}

// KeyError is returned by Validate. Err is ErrMissingCredential or
// ErrMalformedCredential.
type KeyError struct {
	EnvName string
	Prefix  string
	Err     error
}

func (e *KeyError) Error() string {
	if errors.Is(e.Err, ErrMalformedCredential) {
		return fmt.Sprintf("%s must start with %q", e.EnvName, e.Prefix)
	}
	return fmt.Sprintf("%s environment variable is required", e.EnvName)
}

func (e *KeyError) Unwrap() error { return e.Err }

// Guidance returns the operator instructions printed before exiting.
func (e *KeyError) Guidance() []string {
	if errors.Is(e.Err, ErrMalformedCredential) {
		return []string{
			fmt.Sprintf("ERROR: %s must start with '%s' (LiteLLM requirement)", e.EnvName, e.Prefix),
			"Current key does not match required format.",
			"",
			"Examples of valid keys:",
			fmt.Sprintf("- %sdev-test-key (for development)", e.Prefix),
			fmt.Sprintf("- %s$(openssl rand -hex 32) (for production)", e.Prefix),
		}
	}
	return []string{
		fmt.Sprintf("ERROR: %s environment variable is required", e.EnvName),
		"This key protects access to your authenticated Claude instance.",
		"",
		"To set it:",
		"1. Copy .env.example to .env and set your own key",
		fmt.Sprintf("2. Or set environment variable: %s=<your-key> docker-compose up", e.EnvName),
		"",
		fmt.Sprintf("Generate a secure key: echo \"%s$(openssl rand -hex 32)\"", e.Prefix),
		fmt.Sprintf("Or for development: export %s=\"%sdev-test-key\"", e.EnvName, e.Prefix),
	}
}

// Inspect reads the key from e without judging it.
func (p KeyPolicy) Inspect(e *env.Env) Preconditions {
	p = p.normalized()
	key, _ := e.Lookup(p.EnvName)
	present := strings.TrimSpace(key) != ""
	return Preconditions{
		MasterKey:      key,
		Present:        present,
		KeyFormatValid: present && strings.HasPrefix(key, p.Prefix),
	}
}

// Validate runs both key gates in order: presence, then prefix.
func (p KeyPolicy) Validate(e *env.Env) (Preconditions, error) {
	p = p.normalized()
	pre := p.Inspect(e)
	switch {
	case !pre.Present:
		return pre, &KeyError{EnvName: p.EnvName, Prefix: p.Prefix, Err: ErrMissingCredential}
	case !pre.KeyFormatValid:
		return pre, &KeyError{EnvName: p.EnvName, Prefix: p.Prefix, Err: ErrMalformedCredential}
	}
	return pre, nil
}

// ValidKeyFormat reports whether key passes the prefix gate of p.
func (p KeyPolicy) ValidKeyFormat(key string) bool {
	return strings.TrimSpace(key) != "" && strings.HasPrefix(key, p.normalized().Prefix)
}
