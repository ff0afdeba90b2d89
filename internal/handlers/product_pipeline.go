package handlers

import (
	"context"
	"log"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"shopapi/internal/apperr"
	"shopapi/internal/models"
	"shopapi/internal/storage"
)

/* =======================
   DOCUMENT STORE BOUNDARY
======================= */

// productStore is the document-store seam the pipeline writes through. The
// mongo implementation is the only production one; tests substitute a fake
// to drive persist failures.
type productStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) (primitive.ObjectID, error)
	Replace(ctx context.Context, id primitive.ObjectID, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// AdjustStock changes one variant's quantity by delta. A negative delta
	// is rejected when it would push the quantity below zero. The derived
	// fields (per-variant availability, totalStock, minPrice, isAvailable)
	// are refreshed as part of the same call.
	AdjustStock(ctx context.Context, id primitive.ObjectID, sku string, delta int) error
}

type mongoProductStore struct {
	col *mongo.Collection
}

func newMongoProductStore(db *mongo.Database) *mongoProductStore {
	return &mongoProductStore{col: db.Collection("products")}
}

func (s *mongoProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "product not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "product lookup failed")
	}
	return &product, nil
}

func (s *mongoProductStore) Insert(ctx context.Context, product *models.Product) (primitive.ObjectID, error) {
	res, err := s.col.InsertOne(ctx, product)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, apperr.Wrap(apperr.DuplicateKey, err, "slug, sku or barcode already in use")
		}
		return primitive.NilObjectID, apperr.Wrap(apperr.Internal, err, "product insert failed")
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (s *mongoProductStore) Replace(ctx context.Context, id primitive.ObjectID, product *models.Product) error {
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": id}, product)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.DuplicateKey, err, "slug, sku or barcode already in use")
		}
		return apperr.Wrap(apperr.Internal, err, "product update failed")
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "product not found")
	}
	return nil
}

func (s *mongoProductStore) AdjustStock(ctx context.Context, id primitive.ObjectID, sku string, delta int) error {
	filter := bson.M{"_id": id, "variants.sku": sku}
	if delta < 0 {
		// Quantity floor: the match fails instead of going negative.
		filter = bson.M{
			"_id": id,
			"variants": bson.M{"$elemMatch": bson.M{
				"sku":      sku,
				"quantity": bson.M{"$gte": -delta},
			}},
		}
	}

	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"variants.$.quantity": delta}})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "stock update failed")
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.ValidationFailed, "insufficient stock for %s", sku)
	}

	// Quantity changed, so the derived fields must follow. Best-effort: the
	// decrement itself already landed.
	if err := s.refreshAggregates(ctx, id); err != nil {
		log.Printf("[STOCK] aggregate refresh for product %s failed: %v", id.Hex(), err)
	}
	return nil
}

// refreshAggregates re-reads the product and writes back the recomputed
// derived fields. Per-variant availability is set by index so concurrent
// quantity changes are not clobbered.
func (s *mongoProductStore) refreshAggregates(ctx context.Context, id primitive.ObjectID) error {
	product, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	product.RecomputeAggregates()

	set := bson.M{
		"totalStock":  product.TotalStock,
		"minPrice":    product.MinPrice,
		"isAvailable": product.IsAvailable,
		"updatedAt":   time.Now(),
	}
	for i, v := range product.Variants {
		set["variants."+strconv.Itoa(i)+".isAvailable"] = v.IsAvailable
	}

	_, err = s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (s *mongoProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "product delete failed")
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "product not found")
	}
	return nil
}

/* =======================
   ORCHESTRATOR
======================= */

// productPipeline sequences intake, validation, reconciliation and the
// document write. File deletions happen strictly after the write is
// acknowledged (commit) or are strictly limited to this request's uploads
// (rollback), so the document store never references a missing file.
type productPipeline struct {
	store productStore
	blobs *storage.BlobStore
}

func newProductPipeline(store productStore, blobs *storage.BlobStore) *productPipeline {
	return &productPipeline{store: store, blobs: blobs}
}

// rollback removes every file written during this request's intake.
// Best-effort: cleanup failures are logged by the blob store and never
// override the error that triggered the rollback.
func (p *productPipeline) rollback(intake intakeResult) {
	for _, filename := range intake.uploadedFilenames() {
		p.blobs.SafeDelete(blobPath(filename))
	}
	if len(intake.Manifest) > 0 {
		log.Printf("[PIPELINE] rolled back %d uploaded file(s)", len(intake.Manifest))
	}
}

// commit removes the files superseded by a successful write.
func (p *productPipeline) commit(deletions []string) {
	for _, filename := range deletions {
		p.blobs.SafeDelete(blobPath(filename))
	}
}

func (p *productPipeline) Create(ctx context.Context, form productForm, files *multipart.Form) (*models.Product, error) {
	intake, err := processUploads(files, p.blobs)
	if err != nil {
		p.rollback(intake)
		return nil, err
	}

	if err := mergeUploads(&form, intake); err != nil {
		p.rollback(intake)
		return nil, err
	}

	if err := validateProductForm(form, true); err != nil {
		p.rollback(intake)
		return nil, err
	}

	product, err := buildProduct(form)
	if err != nil {
		p.rollback(intake)
		return nil, err
	}

	id, err := p.store.Insert(ctx, product)
	if err != nil {
		p.rollback(intake)
		return nil, err
	}
	product.ID = id

	return product, nil
}

func (p *productPipeline) Update(ctx context.Context, id primitive.ObjectID, form productForm, files *multipart.Form) (*models.Product, error) {
	intake, err := processUploads(files, p.blobs)
	if err != nil {
		p.rollback(intake)
		return nil, err
	}

	if err := mergeUploads(&form, intake); err != nil {
		p.rollback(intake)
		return nil, err
	}

	if err := validateProductForm(form, false); err != nil {
		p.rollback(intake)
		return nil, err
	}

	existing, err := p.store.FindByID(ctx, id)
	if err != nil {
		p.rollback(intake)
		return nil, err
	}

	// Scalar fields first: a variant added in the same request derives its
	// SKU from the renamed title, not the stored one.
	applyProductFields(existing, form)

	deletions := []string{}
	if form.VariantsSet {
		outcome := reconcileVariantImages(existing.Variants, form.Variants, intake.uploadedSet())
		deletions = outcome.Deletions
		applyVariants(existing, form.Variants, outcome.Images)
	}

	if form.MainImageSet && form.MainImage != existing.MainImage {
		if existing.MainImage != "" {
			deletions = append(deletions, existing.MainImage)
		}
		existing.MainImage = form.MainImage
	}

	if form.CategoriesSet {
		categories, err := parseCategoryIDs(form.Categories)
		if err != nil {
			p.rollback(intake)
			return nil, err
		}
		existing.Categories = categories
	}

	existing.RecomputeAggregates()
	existing.UpdatedAt = time.Now()

	if err := p.store.Replace(ctx, id, existing); err != nil {
		p.rollback(intake)
		return nil, err
	}

	p.commit(deletions)
	return existing, nil
}

// Remove deletes the product document, then cleans up every image it
// referenced. File cleanup is best-effort and never un-deletes the document.
func (p *productPipeline) Remove(ctx context.Context, id primitive.ObjectID) error {
	existing, err := p.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := p.store.Delete(ctx, id); err != nil {
		return err
	}

	for _, filename := range existing.ImageFilenames() {
		p.blobs.SafeDelete(blobPath(filename))
	}
	return nil
}

/* =======================
   DOCUMENT ASSEMBLY
======================= */

func buildProduct(form productForm) (*models.Product, error) {
	now := time.Now()

	product := &models.Product{
		Title:            form.Title,
		Description:      form.Description,
		ShortDescription: form.ShortDescription,
		Slug:             slugify(form.Title),
		MainImage:        form.MainImage,
		Tags:             models.StringList(form.Tags),
		Status:           models.ProductStatusActive,
		Seo:              form.Seo,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if form.StatusSet && form.Status != "" {
		product.Status = form.Status
	}

	categories, err := parseCategoryIDs(form.Categories)
	if err != nil {
		return nil, err
	}
	product.Categories = categories

	product.Variants = make([]models.Variant, len(form.Variants))
	for i, in := range form.Variants {
		product.Variants[i] = assembleVariant(form.Title, i, in, in.images(), nil)
	}

	product.RecomputeAggregates()
	return product, nil
}

// applyVariants rebuilds the embedded variant list from the client payload
// and the reconciler's final image lists. SKUs and barcodes survive from the
// previous variant at the same index when the payload does not supply them.
func applyVariants(product *models.Product, inputs []variantInput, finalImages [][]string) {
	variants := make([]models.Variant, len(inputs))
	for i, in := range inputs {
		var prior *models.Variant
		if i < len(product.Variants) {
			prior = &product.Variants[i]
		}
		variants[i] = assembleVariant(product.Title, i, in, finalImages[i], prior)
	}
	product.Variants = variants
}

func assembleVariant(title string, index int, in variantInput, images []string, prior *models.Variant) models.Variant {
	variant := models.Variant{
		Attributes:    in.Attributes,
		Price:         in.price(),
		DiscountPrice: in.discountPrice(),
		Quantity:      in.quantity(),
		Images:        images,
		SKU:           strings.TrimSpace(in.SKU),
		BarCode:       strings.TrimSpace(in.BarCode),
	}

	if variant.SKU == "" && prior != nil {
		variant.SKU = prior.SKU
	}
	if variant.BarCode == "" && prior != nil {
		variant.BarCode = prior.BarCode
	}
	if variant.SKU == "" {
		variant.SKU = deriveSKU(title, variant.Attributes, index)
	}
	if variant.BarCode == "" {
		variant.BarCode = deriveBarcode()
	}
	return variant
}

func applyProductFields(product *models.Product, form productForm) {
	if form.TitleSet && form.Title != product.Title {
		product.Title = form.Title
		product.Slug = slugify(form.Title)
	}
	if form.DescriptionSet {
		product.Description = form.Description
	}
	if form.ShortDescriptionSet {
		product.ShortDescription = form.ShortDescription
	}
	if form.StatusSet && form.Status != "" {
		product.Status = form.Status
	}
	if form.SeoSet {
		product.Seo = form.Seo
	}
	if form.TagsSet {
		product.Tags = models.StringList(form.Tags)
	}
}

func parseCategoryIDs(raw []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	seen := map[primitive.ObjectID]struct{}{}
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, apperr.New(apperr.ValidationFailed, "invalid category id: %s", value)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
