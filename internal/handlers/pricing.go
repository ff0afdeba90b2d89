package handlers

import "shopapi/internal/apperr"

// validateVariantPricing checks a single variant's business rules: price and
// quantity non-negative, at least one attribute, discount never above price.
func validateVariantPricing(index int, v variantInput) error {
	if len(v.Attributes) == 0 {
		return apperr.New(apperr.ValidationFailed, "variant %d must have at least one attribute", index)
	}
	if v.Price == nil {
		return apperr.New(apperr.ValidationFailed, "variant %d price is required", index)
	}
	if v.price() < 0 {
		return apperr.New(apperr.ValidationFailed, "variant %d price must be zero or greater", index)
	}
	if v.discountPrice() < 0 {
		return apperr.New(apperr.ValidationFailed, "variant %d discountPrice must be zero or greater", index)
	}
	if v.discountPrice() > v.price() {
		return apperr.New(apperr.ValidationFailed, "variant %d discountPrice cannot be higher than price", index)
	}
	if v.quantity() < 0 {
		return apperr.New(apperr.ValidationFailed, "variant %d quantity must be zero or greater", index)
	}
	return nil
}

func validateVariants(variants []variantInput) error {
	for i, v := range variants {
		if err := validateVariantPricing(i, v); err != nil {
			return err
		}
	}
	return nil
}

// validateProductForm runs schema-level checks after parsing and upload
// merging. Creation additionally requires title, description and a non-empty
// variant list with images.
func validateProductForm(form productForm, creating bool) error {
	if creating {
		if !form.TitleSet || form.Title == "" {
			return apperr.New(apperr.ValidationFailed, "title is required")
		}
		if !form.DescriptionSet || form.Description == "" {
			return apperr.New(apperr.ValidationFailed, "description is required")
		}
		if !form.VariantsSet || len(form.Variants) == 0 {
			return apperr.New(apperr.ValidationFailed, "at least one variant is required")
		}
	}

	if form.TitleSet && form.Title == "" {
		return apperr.New(apperr.ValidationFailed, "title cannot be empty")
	}
	if form.StatusSet && form.Status != "" {
		if form.Status != "active" && form.Status != "inactive" {
			return apperr.New(apperr.ValidationFailed, "status must be active or inactive")
		}
	}
	if form.VariantsSet {
		if err := validateVariants(form.Variants); err != nil {
			return err
		}
	}
	if creating {
		if err := requireVariantImages(form.Variants); err != nil {
			return err
		}
	}
	return nil
}
