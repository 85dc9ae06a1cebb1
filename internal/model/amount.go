package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a currency value. It decodes from a JSON number or a numeric string
// so free-text input is coerced to a number at the write boundary.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return a.parse(s)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	return a.set(f)
}

func (a *Amount) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount: invalid number %q", s)
	}
	return a.set(f)
}

// set rejects NaN and infinities; the value has to survive JSON encoding.
func (a *Amount) set(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("amount: %v is not a finite number", f)
	}
	*a = Amount(f)
	return nil
}

func (a Amount) Float64() float64 {
	return float64(a)
}
