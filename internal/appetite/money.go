package appetite

import (
	"errors"
	"strconv"
	"strings"
)

var errNotMoney = errors.New("not a monetary value")

// parseMoney reads extracted monetary strings like "$1,200" or "500".
func parseMoney(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, errNotMoney
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, errNotMoney
	}
	return value, nil
}
