package handlers

import (
	"net/url"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestParseQueryFeaturesBracketFilters(t *testing.T) {
	values, _ := url.ParseQuery("price[gte]=10&price[lte]=50&status=active")
	features, err := parseQueryFeatures(values)
	if err != nil {
		t.Fatalf("parseQueryFeatures returned error: %v", err)
	}

	price, ok := features.Filter["price"].(bson.M)
	if !ok {
		t.Fatalf("expected nested price filter, got %#v", features.Filter["price"])
	}
	if price["$gte"] != 10.0 || price["$lte"] != 50.0 {
		t.Fatalf("unexpected price bounds: %#v", price)
	}
	if features.Filter["status"] != "active" {
		t.Fatalf("expected status filter, got %#v", features.Filter["status"])
	}
}

func TestParseQueryFeaturesRejectsUnknownOperator(t *testing.T) {
	values, _ := url.ParseQuery("price[regex]=evil")
	if _, err := parseQueryFeatures(values); err == nil {
		t.Fatal("expected error for unsupported operator")
	}
}

func TestParseQueryFeaturesSortAndFields(t *testing.T) {
	values, _ := url.ParseQuery("sort=-minPrice,title&fields=title,slug")
	features, err := parseQueryFeatures(values)
	if err != nil {
		t.Fatalf("parseQueryFeatures returned error: %v", err)
	}

	if len(features.Sort) != 2 || features.Sort[0].Key != "minPrice" || features.Sort[0].Value != -1 {
		t.Fatalf("unexpected sort: %#v", features.Sort)
	}
	if len(features.Fields) != 2 || features.Fields[1].Key != "slug" {
		t.Fatalf("unexpected projection: %#v", features.Fields)
	}
}

func TestParseQueryFeaturesDefaultSortAndPaging(t *testing.T) {
	features, err := parseQueryFeatures(url.Values{})
	if err != nil {
		t.Fatalf("parseQueryFeatures returned error: %v", err)
	}
	if features.Page != 1 || features.Limit != 20 {
		t.Fatalf("unexpected defaults: page=%d limit=%d", features.Page, features.Limit)
	}
	if features.Sort[0].Key != "createdAt" || features.Sort[0].Value != -1 {
		t.Fatalf("expected default -createdAt sort, got %#v", features.Sort)
	}
}

func TestParsePaginationParamsValidation(t *testing.T) {
	if _, _, err := parsePaginationParams("0", ""); err == nil {
		t.Fatal("expected error for page=0")
	}
	if _, _, err := parsePaginationParams("", "1000"); err == nil {
		t.Fatal("expected error for oversized limit")
	}
	page, limit, err := parsePaginationParams("3", "50")
	if err != nil || page != 3 || limit != 50 {
		t.Fatalf("unexpected result: page=%d limit=%d err=%v", page, limit, err)
	}
}

func TestParseQueryFeaturesInOperator(t *testing.T) {
	values, _ := url.ParseQuery("status[in]=active,inactive")
	features, err := parseQueryFeatures(values)
	if err != nil {
		t.Fatalf("parseQueryFeatures returned error: %v", err)
	}
	status, ok := features.Filter["status"].(bson.M)
	if !ok {
		t.Fatalf("expected nested status filter, got %#v", features.Filter["status"])
	}
	items, ok := status["$in"].([]interface{})
	if !ok || len(items) != 2 {
		t.Fatalf("unexpected $in items: %#v", status["$in"])
	}
}
