package models

// Seo holds embedded search metadata for a product or category. In multipart
// requests the whole block arrives as a JSON string and is parsed before
// validation runs.
type Seo struct {
	MetaTitle       string     `bson:"metaTitle,omitempty" json:"metaTitle,omitempty"`
	MetaDescription string     `bson:"metaDescription,omitempty" json:"metaDescription,omitempty"`
	MetaKeywords    StringList `bson:"metaKeywords,omitempty" json:"metaKeywords,omitempty"`
}
