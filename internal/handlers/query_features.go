package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shopapi/internal/apperr"
)

// queryFeatures translates list query strings into mongo find options:
// bracket filters (price[gte]=10 → {"price": {"$gte": 10}}), comma sort
// (sort=-createdAt,title), field projection (fields=title,slug) and
// page/limit pagination.
type queryFeatures struct {
	Filter bson.M
	Sort   bson.D
	Fields bson.D
	Page   int64
	Limit  int64
}

var allowedFilterOps = map[string]struct{}{
	"gt": {}, "gte": {}, "lt": {}, "lte": {}, "ne": {}, "in": {},
}

func parseQueryFeatures(values url.Values) (queryFeatures, error) {
	features := queryFeatures{
		Filter: bson.M{},
		Sort:   bson.D{{Key: "createdAt", Value: -1}},
		Page:   1,
		Limit:  20,
	}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		value := vals[0]

		switch key {
		case "page", "limit", "sort", "fields":
			continue
		}

		if open := strings.IndexByte(key, '['); open > 0 && strings.HasSuffix(key, "]") {
			field := key[:open]
			op := key[open+1 : len(key)-1]
			if _, ok := allowedFilterOps[op]; !ok {
				return queryFeatures{}, apperr.New(apperr.MalformedPayload, "unsupported filter operator: %s", op)
			}

			nested, ok := features.Filter[field].(bson.M)
			if !ok {
				nested = bson.M{}
				features.Filter[field] = nested
			}
			if op == "in" {
				parts := strings.Split(value, ",")
				items := make([]interface{}, 0, len(parts))
				for _, part := range parts {
					items = append(items, coerceFilterValue(part))
				}
				nested["$in"] = items
			} else {
				nested["$"+op] = coerceFilterValue(value)
			}
			continue
		}

		features.Filter[key] = coerceFilterValue(value)
	}

	if sortRaw := strings.TrimSpace(values.Get("sort")); sortRaw != "" {
		features.Sort = bson.D{}
		for _, field := range strings.Split(sortRaw, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			direction := 1
			if strings.HasPrefix(field, "-") {
				direction = -1
				field = field[1:]
			}
			features.Sort = append(features.Sort, bson.E{Key: field, Value: direction})
		}
		if len(features.Sort) == 0 {
			features.Sort = bson.D{{Key: "createdAt", Value: -1}}
		}
	}

	if fieldsRaw := strings.TrimSpace(values.Get("fields")); fieldsRaw != "" {
		for _, field := range strings.Split(fieldsRaw, ",") {
			if field = strings.TrimSpace(field); field != "" {
				features.Fields = append(features.Fields, bson.E{Key: field, Value: 1})
			}
		}
	}

	page, limit, err := parsePaginationParams(values.Get("page"), values.Get("limit"))
	if err != nil {
		return queryFeatures{}, err
	}
	features.Page = page
	features.Limit = limit

	return features, nil
}

// FindOptions builds the driver options for the list query.
func (f queryFeatures) FindOptions() *options.FindOptions {
	opts := options.Find().
		SetSort(f.Sort).
		SetSkip((f.Page - 1) * f.Limit).
		SetLimit(f.Limit)
	if len(f.Fields) > 0 {
		opts.SetProjection(f.Fields)
	}
	return opts
}

// coerceFilterValue keeps numeric comparisons numeric while leaving
// everything else a string.
func coerceFilterValue(raw string) interface{} {
	trimmed := strings.TrimSpace(raw)
	if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return parsed
	}
	if trimmed == "true" || trimmed == "false" {
		return trimmed == "true"
	}
	return trimmed
}

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := int64(1)
	limit := int64(20)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, apperr.New(apperr.MalformedPayload, "invalid page parameter")
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 || l > 100 {
			return 0, 0, apperr.New(apperr.MalformedPayload, "invalid limit parameter")
		}
		limit = l
	}

	return page, limit, nil
}
