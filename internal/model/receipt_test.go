package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReceiptJSONStringFields(t *testing.T) {
	receipt := Receipt{
		Seq:       4,
		Kind:      KindSwap,
		OK:        true,
		Direction: AToB,
		AmountIn:  10_000_000,
		AmountOut: 17_684_595,
		Fee:       300_000,
		ReserveA:  110_000_000,
		ReserveB:  182_315_405,
	}

	data, err := json.Marshal(receipt)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"amount_in", "amount_out", "fee", "reserve_a", "reserve_b"} {
		_, ok := decoded[key].(string)
		require.Truef(t, ok, "%s should be string", key)
	}
	require.Equal(t, "a_to_b", decoded["direction"])
	require.NotContains(t, decoded, "error")
}
