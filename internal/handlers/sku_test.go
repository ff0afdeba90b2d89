package handlers

import (
	"strings"
	"testing"
)

func TestDeriveSKUFormat(t *testing.T) {
	sku := deriveSKU("Classic White Shirt", map[string]string{"color": "Red", "size": "XL"}, 0)
	if sku != "CWS-RED-XL-001" {
		t.Fatalf("unexpected sku: %s", sku)
	}
}

func TestDeriveSKUIsDeterministic(t *testing.T) {
	attrs := map[string]string{"size": "M", "color": "Blue"}
	first := deriveSKU("Denim Jacket", attrs, 2)
	second := deriveSKU("Denim Jacket", attrs, 2)
	if first != second {
		t.Fatalf("expected identical skus, got %s and %s", first, second)
	}
	if !strings.HasSuffix(first, "-003") {
		t.Fatalf("expected sequence 003, got %s", first)
	}
}

func TestDeriveSKUTruncatesProductCode(t *testing.T) {
	sku := deriveSKU("One Two Three Four Five Six", map[string]string{"size": "L"}, 0)
	if !strings.HasPrefix(sku, "OTTF-") {
		t.Fatalf("expected 4-letter product code, got %s", sku)
	}
}

func TestDeriveSKUEmptyInputs(t *testing.T) {
	sku := deriveSKU("", nil, 0)
	if sku != "PRD-STD-001" {
		t.Fatalf("expected fallback codes, got %s", sku)
	}
}

func TestDeriveBarcodeShape(t *testing.T) {
	code := deriveBarcode()
	if len(code) != 13 {
		t.Fatalf("expected 13 digits, got %d (%s)", len(code), code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric barcode, got %s", code)
		}
	}
}
