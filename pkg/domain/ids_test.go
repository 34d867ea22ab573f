package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "anima/pkg/domain-errors"
)

// TestParsePrincipalID_Invariants validates the parsing invariant:
// "principals must be valid, non-empty, non-nil UUIDs"
func TestParsePrincipalID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePrincipalID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePrincipalID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParsePrincipalID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		p, err := ParsePrincipalID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, PrincipalID(valid), p)
		assert.False(t, p.IsNil())
	})
}

func TestParseNumericIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"max uint64", "18446744073709551615", 18446744073709551615, false},
		{"surrounding whitespace", " 42 ", 42, false},
		{"empty", "", 0, true},
		{"negative", "-1", 0, true},
		{"overflow", "18446744073709551616", 0, true},
		{"hex", "0x2A", 0, true},
		{"SQL injection attempt", "1; DROP TABLE assets;--", 0, true},
		{"oversized input", strings.Repeat("9", 1000), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memo, memoErr := ParseMemo(tt.input)
			asset, assetErr := ParseAssetID(tt.input)
			if tt.wantErr {
				require.Error(t, memoErr)
				require.Error(t, assetErr)
				assert.True(t, dErrors.HasCode(memoErr, dErrors.CodeInvalidInput))
				assert.True(t, dErrors.HasCode(assetErr, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, memoErr)
			require.NoError(t, assetErr)
			assert.Equal(t, Memo(tt.want), memo)
			assert.Equal(t, AssetID(tt.want), asset)
		})
	}
}

func TestDesignation(t *testing.T) {
	assert.Equal(t, "ANIMA-00000000", AssetID(0).Designation())
	assert.Equal(t, "ANIMA-0000002A", AssetID(42).Designation())
	assert.Equal(t, "ANIMA-FFFFFFFF", AssetID(0xFFFFFFFF).Designation())
	assert.Equal(t, "ANIMA-100000000", AssetID(0x100000000).Designation())
}
