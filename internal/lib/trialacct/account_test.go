package trialacct

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUsername_TableTests(t *testing.T) {
	tests := []struct {
		name        string
		companyName string
		wantPrefix  string
	}{
		{
			name:        "latin name",
			companyName: "Acme Corp",
			wantPrefix:  "trial_Acme_",
		},
		{
			name:        "special chars stripped",
			companyName: "A-c.m!e& Ltd",
			wantPrefix:  "trial_Acme_",
		},
		{
			name:        "cjk preserved",
			companyName: "北京交通大学",
			wantPrefix:  "trial_北京交通_",
		},
		{
			name:        "mixed cjk and latin",
			companyName: "智联AI科技",
			wantPrefix:  "trial_智联AI_",
		},
		{
			name:        "short name",
			companyName: "AB",
			wantPrefix:  "trial_AB_",
		},
		{
			name:        "empty name",
			companyName: "",
			wantPrefix:  "trial__",
		},
		{
			name:        "only punctuation",
			companyName: "!!!---",
			wantPrefix:  "trial__",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateUsername(tt.companyName)
			assert.True(t, strings.HasPrefix(got, tt.wantPrefix),
				"GenerateUsername(%q) = %q, want prefix %q", tt.companyName, got, tt.wantPrefix)

			suffix := strings.TrimPrefix(got, tt.wantPrefix)
			assert.Len(t, suffix, 4)
			for _, r := range suffix {
				assert.True(t, r >= '0' && r <= '9', "timestamp suffix must be digits, got %q", suffix)
			}
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		pass, err := GeneratePassword()
		require.NoError(t, err)
		assert.Len(t, pass, passwordLength)
		for _, c := range pass {
			assert.Contains(t, passwordCharset, string(c))
		}
		for _, ambiguous := range "0O1lI" {
			assert.NotContains(t, pass, string(ambiguous))
		}
		seen[pass] = true
	}
	// 50 одинаковых паролей подряд означали бы сломанный генератор
	assert.Greater(t, len(seen), 1)
}

func TestAccessURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		username string
		want     string
	}{
		{
			name:     "plain username",
			baseURL:  "https://trial.example.com",
			username: "trial_Acme_1234",
			want:     "https://trial.example.com/login?user=trial_Acme_1234",
		},
		{
			name:     "cjk username is escaped",
			baseURL:  "https://trial.example.com",
			username: "trial_北京_1234",
			want:     "https://trial.example.com/login?user=trial_%E5%8C%97%E4%BA%AC_1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AccessURL(tt.baseURL, tt.username))
		})
	}
}

func TestRandomSuffix(t *testing.T) {
	s, err := RandomSuffix(3)
	require.NoError(t, err)
	assert.Regexp(t, `^_[0-9a-f]{6}$`, s)

	other, err := RandomSuffix(3)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}

func TestNew(t *testing.T) {
	acc, err := New("Acme Corp", "https://trial.example.com")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(acc.Username, "trial_Acme_"))
	assert.Len(t, acc.Password, passwordLength)
	assert.Equal(t, AccessURL("https://trial.example.com", acc.Username), acc.AccessURL)
}
