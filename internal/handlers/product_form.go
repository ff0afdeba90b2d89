package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"shopapi/internal/apperr"
	"shopapi/internal/models"
)

/* =======================
   INPUT STRUCTS
======================= */

// variantInput is the strongly-typed form of one entry in the request's
// `variants` field. Pointer fields distinguish "absent" from zero values;
// in particular a nil Images means the client did not touch that variant's
// image list.
type variantInput struct {
	Attributes    map[string]string `json:"attributes"`
	Price         *float64          `json:"price"`
	DiscountPrice *float64          `json:"discountPrice"`
	Quantity      *int              `json:"quantity"`
	Images        *[]string         `json:"images"`
	SKU           string            `json:"sku"`
	BarCode       string            `json:"barCode"`
}

func (v variantInput) price() float64 {
	if v.Price == nil {
		return 0
	}
	return *v.Price
}

func (v variantInput) discountPrice() float64 {
	if v.DiscountPrice == nil {
		return 0
	}
	return *v.DiscountPrice
}

func (v variantInput) quantity() int {
	if v.Quantity == nil {
		return 0
	}
	return *v.Quantity
}

func (v variantInput) images() []string {
	if v.Images == nil {
		return nil
	}
	return *v.Images
}

type productForm struct {
	Title               string
	TitleSet            bool
	Description         string
	DescriptionSet      bool
	ShortDescription    string
	ShortDescriptionSet bool
	MainImage           string
	MainImageSet        bool
	Categories          []string
	CategoriesSet       bool
	Tags                []string
	TagsSet             bool
	Status              string
	StatusSet           bool
	Seo                 *models.Seo
	SeoSet              bool
	Variants            []variantInput
	VariantsSet         bool
}

/* =======================
   PARSER
======================= */

// parseProductForm reads the multipart body into a typed form. The nested
// `variants` and `seo` fields arrive as JSON strings and are parsed here so
// nothing downstream ever sees raw maps. File parts are returned untouched
// for the intake step.
func parseProductForm(c *gin.Context) (productForm, *multipart.Form, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return productForm{}, nil, apperr.Wrap(apperr.MalformedPayload, err, "invalid multipart body")
	}

	form := productForm{}

	if value, ok := c.GetPostForm("title"); ok {
		form.Title = strings.TrimSpace(value)
		form.TitleSet = true
	}
	if value, ok := c.GetPostForm("description"); ok {
		form.Description = strings.TrimSpace(value)
		form.DescriptionSet = true
	}
	if value, ok := c.GetPostForm("short_description"); ok {
		form.ShortDescription = strings.TrimSpace(value)
		form.ShortDescriptionSet = true
	}
	if value, ok := c.GetPostForm("main_image"); ok {
		form.MainImage = strings.TrimSpace(value)
		form.MainImageSet = true
	}
	if value, ok := c.GetPostForm("status"); ok {
		form.Status = strings.TrimSpace(strings.ToLower(value))
		form.StatusSet = true
	}

	if values := c.PostFormArray("categories"); len(values) > 0 {
		form.Categories = values
		form.CategoriesSet = true
	}
	if values := c.PostFormArray("tags"); len(values) > 0 {
		form.Tags = values
		form.TagsSet = true
	}

	if value, ok := c.GetPostForm("seo"); ok && strings.TrimSpace(value) != "" {
		var seo models.Seo
		if err := json.Unmarshal([]byte(value), &seo); err != nil {
			return productForm{}, nil, apperr.Wrap(apperr.MalformedPayload, err, "seo must be valid JSON")
		}
		form.Seo = &seo
		form.SeoSet = true
	}

	if value, ok := c.GetPostForm("variants"); ok {
		var variants []variantInput
		if err := json.Unmarshal([]byte(value), &variants); err != nil {
			return productForm{}, nil, apperr.Wrap(apperr.MalformedPayload, err, "variants must be a valid JSON array")
		}
		form.Variants = variants
		form.VariantsSet = true
	}

	return form, c.Request.MultipartForm, nil
}
