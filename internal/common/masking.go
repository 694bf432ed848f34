package common

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// MaskedValue replaces any sensitive value in log output.
const MaskedValue = "***MASKED***"

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string         // Pattern name (e.g., "master_key", "database_url")
	Regex       *regexp.Regexp // Regular expression to match sensitive data
	Replacement string         // Replacement string
	Keys        []string       // Attribute keys whose whole value is masked (case-insensitive)
}

// DefaultSensitivePatterns covers the secrets that pass through proxyboot:
// the proxy master key, database credentials and provider API keys.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "master_key",
		Regex:       regexp.MustCompile(`\bsk-[A-Za-z0-9\-_]+`),
		Replacement: "sk-" + MaskedValue,
		Keys:        []string{"master_key", "litellm_master_key", "key"},
	},
	{
		Name:        "database_url",
		Regex:       regexp.MustCompile(`(?i)\b(postgres(?:ql)?|mysql)://([^:/@\s]+):([^@\s]+)@`),
		Replacement: "${1}://${2}:" + MaskedValue + "@",
		Keys:        []string{"database_url", "dsn"},
	},
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + MaskedValue,
		Keys:        []string{"password", "passwd", "pwd"},
	},
	{
		Name:        "api_key",
		Regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + MaskedValue,
		Keys:        []string{"api_key", "apikey", "api-key"},
	},
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + MaskedValue,
		Keys:        []string{"authorization", "token"},
	},
}

// Masker handles masking of sensitive information in logs
type Masker struct {
	mu       sync.RWMutex
	patterns []SensitivePattern
	enabled  bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return NewMaskerWithPatterns(DefaultSensitivePatterns)
}

// NewMaskerWithPatterns creates a new masker with custom patterns
func NewMaskerWithPatterns(patterns []SensitivePattern) *Masker {
	p := make([]SensitivePattern, len(patterns))
	copy(p, patterns)
	return &Masker{patterns: p, enabled: true}
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// AddPattern adds a sensitive pattern. A pattern with keys but no regex gets
// a key=value regex built from its keys.
func (m *Masker) AddPattern(pattern SensitivePattern) {
	if pattern.Regex == nil && len(pattern.Keys) > 0 {
		keyPattern := strings.Join(pattern.Keys, "|")
		pattern.Regex = regexp.MustCompile(fmt.Sprintf(`(?i)\b(%s)\s*[:=]\s*['"]?([^'",\s}\]]+)['"]?`, keyPattern))
		if pattern.Replacement == "" {
			pattern.Replacement = "${1}=" + MaskedValue
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.enabled {
		return input
	}
	result := input
	for _, pattern := range m.patterns {
		if pattern.Regex == nil {
			continue
		}
		result = pattern.Regex.ReplaceAllString(result, pattern.Replacement)
	}
	return result
}

// isSensitiveKey reports whether the attribute key itself marks a secret.
func (m *Masker) isSensitiveKey(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowerKey := strings.ToLower(key)
	for _, pattern := range m.patterns {
		for _, k := range pattern.Keys {
			if lowerKey == strings.ToLower(k) {
				return true
			}
		}
	}
	return false
}

// MaskValue masks sensitive information based on key-value context
func (m *Masker) MaskValue(key string, value interface{}) interface{} {
	if !m.IsEnabled() {
		return value
	}
	if m.isSensitiveKey(key) {
		return MaskedValue
	}
	switch value.(type) {
	case string, []byte, error, fmt.Stringer:
		return m.MaskString(strings.TrimSpace(toString(value)))
	default:
		return value
	}
}

// MaskKeyValuePairs masks sensitive information in key-value pairs
func (m *Masker) MaskKeyValuePairs(pairs ...any) []any {
	if !m.IsEnabled() {
		return pairs
	}
	result := make([]any, len(pairs))
	copy(result, pairs)
	for i := 0; i+1 < len(pairs); i += 2 {
		if keyStr, ok := pairs[i].(string); ok {
			result[i+1] = m.MaskValue(keyStr, pairs[i+1])
		}
	}
	return result
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return ""
	}
}

var globalMasker = NewMasker()

// SetGlobalMasker sets the global masker instance
func SetGlobalMasker(masker *Masker) {
	globalMasker = masker
}

// GetGlobalMasker returns the global masker instance
func GetGlobalMasker() *Masker {
	return globalMasker
}

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string {
	return globalMasker.MaskString(input)
}

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) {
	globalMasker.SetEnabled(enabled)
}

// IsMaskingEnabled returns whether global masking is enabled
func IsMaskingEnabled() bool {
	return globalMasker.IsEnabled()
}
