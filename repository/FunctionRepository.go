package repository

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

func GenerateRandomNumber() int {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return rng.Intn(900000000) + 100000000
}

// GenerateSKU builds a SKU from the item category and name: a 2-3
// letter prefix per word plus a 5-digit random suffix, e.g. "FAB-VEL-48213".
func GenerateSKU(category, name string) string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	prefix := skuPrefix(category)
	if prefix == "" {
		prefix = "ITM"
	}
	mid := skuPrefix(name)
	number := rng.Intn(90000) + 10000

	if mid == "" {
		return fmt.Sprintf("%s-%05d", prefix, number)
	}
	return fmt.Sprintf("%s-%s-%05d", prefix, mid, number)
}

func skuPrefix(s string) string {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return ""
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
	})
	if len(fields) == 0 {
		return ""
	}
	word := fields[0]
	if len(word) > 3 {
		word = word[:3]
	}
	return word
}

// GenerateQuoteNumber produces numbers like "Q-2026-00421".
func GenerateQuoteNumber(sequence int) string {
	return fmt.Sprintf("Q-%d-%05d", time.Now().Year(), sequence)
}

// GenerateInvoiceNumber produces numbers like "INV-2026-00421".
func GenerateInvoiceNumber(sequence int) string {
	return fmt.Sprintf("INV-%d-%05d", time.Now().Year(), sequence)
}

// GenerateGridCode returns a short random code for a pricing grid,
// two letters plus five digits.
func GenerateGridCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	prefix := string(letters[rng.Intn(len(letters))]) + string(letters[rng.Intn(len(letters))])
	number := rng.Intn(90000) + 10000

	return fmt.Sprintf("%s%d", prefix, number)
}

// NextVersionCode increments codes of the form "RV-01".
func NextVersionCode(previousVersion string) string {
	if previousVersion == "" {
		return "RV-01"
	}

	versionNumberStr := strings.TrimPrefix(previousVersion, "RV-")

	versionNumber, err := strconv.Atoi(versionNumberStr)
	if err != nil {
		return "RV-01"
	}

	return "RV-" + fmt.Sprintf("%02d", versionNumber+1)
}
