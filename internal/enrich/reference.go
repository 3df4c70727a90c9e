package enrich

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Product is one product-master row, addressable by ISIN or CUSIP.
type Product struct {
	ISIN           string
	CUSIP          string
	Symbol         string
	InstrumentType string
	LiquidityKey   string
}

// Client is one client-master row keyed by client id.
type Client struct {
	ClientID string
	RiskTier string
	Region   string
}

// ReferenceData holds the lookup indexes enrichment joins against.
type ReferenceData struct {
	ProductsByISIN  map[string]Product
	ProductsByCUSIP map[string]Product
	Clients         map[string]Client
}

// LoadReference reads the product and client master CSVs. Headers are
// trimmed; the client key column accepts customerID or client_id, and the
// product liquidity column accepts liq_rule_key or liquidity_bucket.
func LoadReference(productPath, clientPath string) (*ReferenceData, error) {
	ref := &ReferenceData{
		ProductsByISIN:  make(map[string]Product),
		ProductsByCUSIP: make(map[string]Product),
		Clients:         make(map[string]Client),
	}

	productRows, err := readCSVMap(productPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load product master: %w", err)
	}
	for _, row := range productRows {
		p := Product{
			ISIN:           row["isin"],
			CUSIP:          row["cusip"],
			Symbol:         row["symbol"],
			InstrumentType: row["instrument_type"],
			LiquidityKey:   row["liq_rule_key"],
		}
		if p.LiquidityKey == "" {
			p.LiquidityKey = row["liquidity_bucket"]
		}
		if p.ISIN != "" {
			ref.ProductsByISIN[p.ISIN] = p
		}
		if p.CUSIP != "" {
			ref.ProductsByCUSIP[p.CUSIP] = p
		}
	}

	clientRows, err := readCSVMap(clientPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client master: %w", err)
	}
	for _, row := range clientRows {
		key := row["customerID"]
		if key == "" {
			key = row["client_id"]
		}
		if key == "" {
			continue
		}
		ref.Clients[key] = Client{
			ClientID: key,
			RiskTier: row["risk_tier"],
			Region:   row["region"],
		}
	}

	return ref, nil
}

// readCSVMap reads a CSV into rows of header -> trimmed cell value. An
// empty path means the master was not configured and yields no rows.
func readCSVMap(path string) ([]map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	all, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	headers := all[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]string, 0, len(all)-1)
	for _, raw := range all[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(raw) {
				row[h] = strings.TrimSpace(raw[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
