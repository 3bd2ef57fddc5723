package brokerfeed

import (
	"fmt"
	"strings"
)

// AccountFromJSON reads an account object of the account listing.
func AccountFromJSON(obj map[string]any) (Account, error) {
	a := Account{
		ID:          lookupString(obj, "$.id", "$.accountId"),
		Name:        lookupString(obj, "$.name", "$.displayName"),
		Institution: lookupString(obj, "$.institution_name", "$.institutionName"),
		SyncState:   syncState(obj),
	}
	if a.ID == "" {
		return a, fmt.Errorf("account has no id")
	}
	return a, nil
}

func syncState(obj map[string]any) string {
	if s := lookupString(obj, "$.syncState"); s != "" {
		return s
	}
	v, ok := lookup(obj, "$.sync_status.holdings.initial_sync_completed")
	if !ok {
		return ""
	}
	if done, _ := v.(bool); done {
		return "synced"
	}
	return "syncing"
}

// ActivityFromJSON reads an activity object. Like the payload readers, it never fails.
func ActivityFromJSON(obj map[string]any) Activity {
	return Activity{
		ID:          lookupString(obj, "$.id"),
		AccountID:   lookupString(obj, "$.account.id", "$.accountId"),
		Type:        strings.ToUpper(lookupString(obj, "$.type")),
		TradeDate:   dayOf(firstOf(obj, "$.trade_date", "$.settlement_date", "$.tradeDate")),
		Symbol:      ExtractSymbol(obj["symbol"]),
		Units:       lookupNumber(obj, "$.units"),
		Price:       lookupNumber(obj, "$.price"),
		Amount:      lookupNumber(obj, "$.amount"),
		Currency:    currencyOf(obj),
		Description: lookupString(obj, "$.description"),
	}
}

func firstOf(obj map[string]any, paths ...string) any {
	v, _ := lookup(obj, paths...)
	return v
}
