package constant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyHelpersNormalizeSymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "perpsim:BTCUSDT:snapshot", SnapshotKey(" btcusdt "))
	assert.Equal(t, "perpsim:BTCUSDT:command:order", CommandOrderKey("btcusdt"))
	assert.Equal(t, "perpsim:BTCUSDT:command:leverage", CommandLeverageKey("BTCUSDT"))
	assert.Equal(t, "perpsim:BTCUSDT:command:cancel", CommandCancelKey("btcUsdt"))
}
