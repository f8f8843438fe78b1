package constant

import (
	"fmt"
	"strings"
)

const (
	ProductionEnvironment  = "production"
	DevelopmentEnvironment = "development"

	TradeQueueGroup = "trade_history_group"

	TradeStreamName         = "simulator"
	TradeStreamSubjectAll   = "simulator.*"
	TradeStreamSubjectTrade = "simulator.trade"
)

func SnapshotKey(symbol string) string {
	return fmt.Sprintf("perpsim:%s:snapshot", normalizeSymbol(symbol))
}

func CommandOrderKey(symbol string) string {
	return fmt.Sprintf("perpsim:%s:command:order", normalizeSymbol(symbol))
}

func CommandLeverageKey(symbol string) string {
	return fmt.Sprintf("perpsim:%s:command:leverage", normalizeSymbol(symbol))
}

func CommandCancelKey(symbol string) string {
	return fmt.Sprintf("perpsim:%s:command:cancel", normalizeSymbol(symbol))
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
