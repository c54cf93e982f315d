package venues

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCustomErrorCode(t *testing.T) {
	code, ok := ExtractCustomErrorCode(map[string]interface{}{
		"InstructionError": []interface{}{float64(2), map[string]interface{}{"Custom": float64(6017)}},
	})
	assert.True(t, ok)
	assert.Equal(t, uint32(6017), code)

	_, ok = ExtractCustomErrorCode(map[string]interface{}{
		"InstructionError": []interface{}{float64(0), "ProgramFailedToComplete"},
	})
	assert.False(t, ok)

	_, ok = ExtractCustomErrorCode("AccountNotFound")
	assert.False(t, ok)

	_, ok = ExtractCustomErrorCode(nil)
	assert.False(t, ok)
}

func TestAnchorDiscriminator(t *testing.T) {
	d1 := AnchorDiscriminator("open_position")
	d2 := AnchorDiscriminator("close_position")

	assert.Len(t, d1, 8)
	assert.NotEqual(t, d1, d2)
	// Deterministic
	assert.Equal(t, d1, AnchorDiscriminator("open_position"))
}
