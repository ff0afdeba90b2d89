package handlers

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode"
)

// deriveSKU builds a human-readable variant code: product initials (max 4),
// attribute value prefixes joined by hyphens, and a zero-padded sequence.
// Example: "Classic White Shirt" + {color: Red, size: XL} + 0 →
// "CWS-RED-XL-001". Collisions are left to the unique index at persist time.
func deriveSKU(title string, attributes map[string]string, index int) string {
	return fmt.Sprintf("%s-%s-%03d", productCode(title), attributesCode(attributes), index+1)
}

func productCode(title string) string {
	var initials []rune
	for _, word := range strings.Fields(title) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				initials = append(initials, unicode.ToUpper(r))
			}
			break
		}
		if len(initials) == 4 {
			break
		}
	}
	if len(initials) == 0 {
		return "PRD"
	}
	return string(initials)
}

func attributesCode(attributes map[string]string) string {
	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	codes := make([]string, 0, len(keys))
	for _, key := range keys {
		value := strings.TrimSpace(attributes[key])
		if value == "" {
			continue
		}
		if len(value) > 3 {
			value = value[:3]
		}
		codes = append(codes, strings.ToUpper(value))
	}
	if len(codes) == 0 {
		return "STD"
	}
	return strings.Join(codes, "-")
}

// deriveBarcode produces a 13-digit numeric string from the current time and
// three random digits. Uniqueness is probabilistic; the barcode index turns a
// collision into a DuplicateKey failure at persist time.
func deriveBarcode() string {
	stamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(stamp) > 10 {
		stamp = stamp[len(stamp)-10:]
	}
	return fmt.Sprintf("%s%03d", stamp, rand.Intn(900)+100)
}
