package rules

import (
	"fmt"
	"strings"

	"trade-surveillance-etl/internal/model"

	"trade-surveillance-etl/pkg/utils"
)

// DetectDuplicates runs the batch-scoped duplicate rule over the whole
// record set. Two independent criteria: exact duplicate trade_id, and
// exact duplicate (order_id, trade_ts, quantity, price). Every member of
// a group of size >= 2 gets one breach per triggered criterion, keyed by
// record index. The grouping maps live only for this call.
func DetectDuplicates(records []model.Record, def model.RuleDef) map[int][]model.Breach {
	byTradeID := make(map[string][]int)
	byOrderKey := make(map[string][]int)

	for i, rec := range records {
		v := NewView(rec)
		if id, err := v.String("trade_id"); err == nil {
			byTradeID[id] = append(byTradeID[id], i)
		}
		if key, ok := orderCollisionKey(v); ok {
			byOrderKey[key] = append(byOrderKey[key], i)
		}
	}

	breaches := make(map[int][]model.Breach)
	for id, members := range byTradeID {
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			b := newBreach(def, fmt.Sprintf("trade_id=%s shared by %d records", id, len(members)))
			breaches[i] = append(breaches[i], b)
		}
	}
	for key, members := range byOrderKey {
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			b := newBreach(def, fmt.Sprintf("order collision on (order_id,trade_ts,quantity,price)=%s across %d records", key, len(members)))
			breaches[i] = append(breaches[i], b)
		}
	}
	return breaches
}

// orderCollisionKey builds the soft-collision grouping key. Records with
// any component missing are not grouped; MANDATORY reports the gap.
func orderCollisionKey(v View) (string, bool) {
	orderID, err := v.String("order_id")
	if err != nil {
		return "", false
	}
	tradeTS, err := v.String("trade_ts")
	if err != nil {
		return "", false
	}
	if v.IsMissing("quantity") || v.IsMissing("price") {
		return "", false
	}
	qty := utils.Numeric(v.Record()["quantity"])
	price := utils.Numeric(v.Record()["price"])
	return strings.Join([]string{
		orderID, tradeTS,
		fmt.Sprintf("%g", qty), fmt.Sprintf("%g", price),
	}, "|"), true
}
