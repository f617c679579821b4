package costbasis

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/costbasis/date"
)

// This file contains the codecs of the engine inputs.
//
// Transactions and holdings come either as a JSON array, as served by the
// external store, or as JSONL, one record per line, which is friendlier to
// keep in a git repository. Blank lines are skipped and errors carry the line
// number.

const attrOn = "on"

// decodeRecords reads a JSON array or a JSONL stream of T.
func decodeRecords[T any](r io.Reader, what string) ([]T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", what, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []T
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("cannot decode %s: %w", what, err)
		}
		return list, nil
	}

	var list []T
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("cannot decode %s on line %d: %w", what, i, err)
		}
		list = append(list, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", what, err)
	}
	return list, nil
}

// DecodeTransactions reads raw transactions.
func DecodeTransactions(r io.Reader) ([]RawTransaction, error) {
	return decodeRecords[RawTransaction](r, "transactions")
}

// DecodeHoldings reads raw holdings.
func DecodeHoldings(r io.Reader) ([]RawHolding, error) {
	return decodeRecords[RawHolding](r, "holdings")
}

// EncodeTransactions writes transactions as JSONL.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	enc := json.NewEncoder(w)
	for _, tx := range txs {
		if err := enc.Encode(tx); err != nil {
			return fmt.Errorf("cannot encode transaction %s: %w", tx.Code, err)
		}
	}
	return nil
}

// DecodePrices reads the latest prices from an arbitrary JSON document.
//
// path is a JSONPath expression selecting an object of code to price, "$"
// when empty. Prices can be numbers or numeric strings. Entries that are
// neither, or not positive, are ignored.
func DecodePrices(r io.Reader, path string) (PriceMap, error) {
	if path == "" {
		path = "$"
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		return nil, fmt.Errorf("cannot decode prices: %w", err)
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("cannot select prices with %q: %w", path, err)
	}
	// jsonpath returns a list for wildcard and filter expressions: keep the
	// first answer.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	entries, ok := jval.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("prices at %q: want an object of code to price, got %T", path, jval)
	}

	prices := make(PriceMap, len(entries))
	for code, v := range entries {
		var n Number
		switch v := v.(type) {
		case json.Number:
			n = Number{value: parseNumericString(v.String())}
		case string:
			n = Number{value: parseNumericString(v)}
		default:
			continue
		}
		if n.Decimal().IsPositive() {
			prices[code] = M(n.Decimal(), "")
		}
	}
	return prices, nil
}

// DecodePriceHistory reads daily closes in the JSONL market format: one day
// per line with the date under "on" and one price per instrument code.
//
//	{"on":"2025-01-02","ABC":12.3,"XYZ":4.5}
func DecodePriceHistory(r io.Reader) (PriceHistory, error) {
	history := make(PriceHistory)
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		txt := scanner.Text()
		if strings.TrimSpace(txt) == "" {
			continue
		}
		jobj := make(map[string]any)
		if err := json.Unmarshal([]byte(txt), &jobj); err != nil {
			return nil, fmt.Errorf("parse error line %d: not a correct json: %w", i, err)
		}
		jstring, ok := jobj[attrOn].(string)
		if !ok {
			return nil, fmt.Errorf("parse error line %d: missing the property %q with a date", i, attrOn)
		}
		on, err := date.Parse(jstring)
		if err != nil {
			return nil, fmt.Errorf("parse error line %d: property %q must be a valid date: %w", i, attrOn, err)
		}
		for code, price := range jobj {
			if code == attrOn {
				continue
			}
			p, ok := price.(float64)
			if !ok {
				return nil, fmt.Errorf("parse error line %d: property %q must be of type 'number'", i, code)
			}
			history.Set(code, on, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read price history: %w", err)
	}
	return history, nil
}
