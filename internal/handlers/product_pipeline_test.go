package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shopapi/internal/apperr"
	"shopapi/internal/models"
	"shopapi/internal/storage"
)

/* =======================
   FAKE DOCUMENT STORE
======================= */

type fakeProductStore struct {
	byID       map[primitive.ObjectID]*models.Product
	insertErr  error
	replaceErr error
	adjustErr  map[string]error // keyed by sku
	inserted   []*models.Product
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{byID: map[primitive.ObjectID]*models.Product{}}
}

func (s *fakeProductStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	product, ok := s.byID[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "product not found")
	}
	clone := *product
	clone.Variants = append([]models.Variant(nil), product.Variants...)
	return &clone, nil
}

func (s *fakeProductStore) Insert(_ context.Context, product *models.Product) (primitive.ObjectID, error) {
	if s.insertErr != nil {
		return primitive.NilObjectID, s.insertErr
	}
	id := primitive.NewObjectID()
	s.byID[id] = product
	s.inserted = append(s.inserted, product)
	return id, nil
}

func (s *fakeProductStore) Replace(_ context.Context, id primitive.ObjectID, product *models.Product) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	if _, ok := s.byID[id]; !ok {
		return apperr.New(apperr.NotFound, "product not found")
	}
	s.byID[id] = product
	return nil
}

func (s *fakeProductStore) AdjustStock(_ context.Context, id primitive.ObjectID, sku string, delta int) error {
	if err := s.adjustErr[sku]; err != nil {
		return err
	}
	product, ok := s.byID[id]
	if !ok {
		return apperr.New(apperr.NotFound, "product not found")
	}
	for i := range product.Variants {
		if product.Variants[i].SKU != sku {
			continue
		}
		if product.Variants[i].Quantity+delta < 0 {
			return apperr.New(apperr.ValidationFailed, "insufficient stock for %s", sku)
		}
		product.Variants[i].Quantity += delta
		product.RecomputeAggregates()
		return nil
	}
	return apperr.New(apperr.ValidationFailed, "insufficient stock for %s", sku)
}

func (s *fakeProductStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := s.byID[id]; !ok {
		return apperr.New(apperr.NotFound, "product not found")
	}
	delete(s.byID, id)
	return nil
}

/* =======================
   HELPERS
======================= */

func storedFiles(t *testing.T, blobs *storage.BlobStore) []string {
	t.Helper()
	dir := filepath.Join(blobs.Root(), "images", "products")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading blob dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func seedBlob(t *testing.T, blobs *storage.BlobStore, name string) {
	t.Helper()
	if err := blobs.Save(productImageFolder, name, []byte("jpeg")); err != nil {
		t.Fatalf("seeding blob %s: %v", name, err)
	}
}

func createForm(variants ...variantInput) productForm {
	return productForm{
		Title: "Classic Shirt", TitleSet: true,
		Description: "A shirt", DescriptionSet: true,
		Variants: variants, VariantsSet: true,
	}
}

func baseVariant(qty int) variantInput {
	return variantInput{
		Attributes: map[string]string{"color": "red"},
		Price:      floatPtr(100),
		Quantity:   intPtr(qty),
	}
}

/* =======================
   CREATE
======================= */

func TestCreateProductWithUploadedVariantImages(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)
	img := pngBytes(t)

	files := buildUploadForm(t, map[string][][]byte{
		"variant_images[0]": {img},
		"variant_images[1]": {img},
	})

	product, err := pipeline.Create(context.Background(), createForm(baseVariant(3), baseVariant(0)), files)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if len(product.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(product.Variants))
	}
	for i, v := range product.Variants {
		if len(v.Images) != 1 {
			t.Fatalf("variant %d images = %v, want exactly 1", i, v.Images)
		}
		if !blobs.Exists(blobPath(v.Images[0])) {
			t.Fatalf("referenced image %s missing from blob store", v.Images[0])
		}
		if v.SKU == "" || v.BarCode == "" {
			t.Fatalf("variant %d missing sku/barcode: %+v", i, v)
		}
	}
	if !product.IsAvailable {
		t.Fatal("expected product available (variant 0 has stock)")
	}
	if product.Slug != "classic-shirt" {
		t.Fatalf("unexpected slug: %s", product.Slug)
	}
	if product.TotalStock != 3 || product.MinPrice != 100 {
		t.Fatalf("unexpected aggregates: stock=%d minPrice=%v", product.TotalStock, product.MinPrice)
	}
}

func TestCreateProductVariantWithoutImageRollsBack(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)
	img := pngBytes(t)

	// Variant 1 gets no upload and retains nothing.
	files := buildUploadForm(t, map[string][][]byte{
		"variant_images[0]": {img},
	})

	_, err := pipeline.Create(context.Background(), createForm(baseVariant(1), baseVariant(1)), files)
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Fatalf("expected ValidationFailed, got %v", err)
	}

	if files := storedFiles(t, blobs); len(files) != 0 {
		t.Fatalf("expected all uploads rolled back, found %v", files)
	}
	if len(store.inserted) != 0 {
		t.Fatal("document store must be untouched")
	}
}

func TestCreateProductPersistFailureRollsBackUploads(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	store.insertErr = apperr.New(apperr.DuplicateKey, "slug already in use")
	pipeline := newProductPipeline(store, blobs)
	img := pngBytes(t)

	files := buildUploadForm(t, map[string][][]byte{
		"main_image":        {img},
		"variant_images[0]": {img},
	})

	_, err := pipeline.Create(context.Background(), createForm(baseVariant(1)), files)
	if apperr.KindOf(err) != apperr.DuplicateKey {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}

	if files := storedFiles(t, blobs); len(files) != 0 {
		t.Fatalf("expected rollback to delete every upload, found %v", files)
	}
}

func TestCreateProductDiscountAbovePriceFailsBeforePersist(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)
	img := pngBytes(t)

	bad := baseVariant(1)
	bad.DiscountPrice = floatPtr(150)

	files := buildUploadForm(t, map[string][][]byte{
		"variant_images[0]": {img},
	})

	_, err := pipeline.Create(context.Background(), createForm(bad), files)
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Fatalf("expected ValidationFailed, got %v", err)
	}
	if files := storedFiles(t, blobs); len(files) != 0 {
		t.Fatalf("expected uploads rolled back, found %v", files)
	}
	if len(store.inserted) != 0 {
		t.Fatal("document store must be untouched")
	}
}

/* =======================
   UPDATE
======================= */

func seedProduct(t *testing.T, store *fakeProductStore, blobs *storage.BlobStore, variants ...models.Variant) primitive.ObjectID {
	t.Helper()
	product := &models.Product{
		Title:       "Classic Shirt",
		Description: "A shirt",
		Slug:        "classic-shirt",
		Status:      models.ProductStatusActive,
		Variants:    variants,
	}
	product.RecomputeAggregates()
	id, err := store.Insert(context.Background(), product)
	if err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	for _, v := range variants {
		for _, name := range v.Images {
			seedBlob(t, blobs, name)
		}
	}
	return id
}

func TestUpdateProductDropsAndUploadsImages(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)
	img := pngBytes(t)

	id := seedProduct(t, store, blobs, models.Variant{
		Attributes: map[string]string{"color": "red"},
		Price:      100, Quantity: 2,
		Images: []string{"old1.jpeg", "old2.jpeg"},
		SKU:    "CS-RED-001", BarCode: "1234567890123",
	})

	form := productForm{
		Variants: []variantInput{{
			Attributes: map[string]string{"color": "red"},
			Price:      floatPtr(100),
			Quantity:   intPtr(2),
			Images:     imagesPtr("old1.jpeg"),
		}},
		VariantsSet: true,
	}
	files := buildUploadForm(t, map[string][][]byte{
		"variant_images[0]": {img},
	})

	updated, err := pipeline.Update(context.Background(), id, form, files)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	images := updated.Variants[0].Images
	if len(images) != 2 || images[0] != "old1.jpeg" {
		t.Fatalf("expected [old1.jpeg, <upload>], got %v", images)
	}
	if blobs.Exists(blobPath("old2.jpeg")) {
		t.Fatal("expected old2.jpeg deleted after commit")
	}
	if !blobs.Exists(blobPath("old1.jpeg")) {
		t.Fatal("retained image must survive")
	}
	if !blobs.Exists(blobPath(images[1])) {
		t.Fatal("uploaded image must exist in blob store")
	}
	if updated.Variants[0].SKU != "CS-RED-001" {
		t.Fatalf("expected sku carried over, got %s", updated.Variants[0].SKU)
	}
}

func TestUpdateProductReducesVariantCount(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)

	id := seedProduct(t, store, blobs,
		models.Variant{Attributes: map[string]string{"size": "S"}, Price: 10, Images: []string{"s.jpeg"}, SKU: "A", BarCode: "1"},
		models.Variant{Attributes: map[string]string{"size": "M"}, Price: 10, Images: []string{"m1.jpeg", "m2.jpeg"}, SKU: "B", BarCode: "2"},
		models.Variant{Attributes: map[string]string{"size": "L"}, Price: 10, Images: []string{"l.jpeg"}, SKU: "C", BarCode: "3"},
	)

	form := productForm{
		Variants: []variantInput{{
			Attributes: map[string]string{"size": "S"},
			Price:      floatPtr(10),
			Quantity:   intPtr(1),
			Images:     imagesPtr("s.jpeg"),
		}},
		VariantsSet: true,
	}

	updated, err := pipeline.Update(context.Background(), id, form, nil)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updated.Variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(updated.Variants))
	}
	for _, gone := range []string{"m1.jpeg", "m2.jpeg", "l.jpeg"} {
		if blobs.Exists(blobPath(gone)) {
			t.Fatalf("expected %s deleted after commit", gone)
		}
	}
	if !blobs.Exists(blobPath("s.jpeg")) {
		t.Fatal("surviving variant's image must remain")
	}
}

func TestUpdateProductPersistFailureKeepsOldFiles(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)
	img := pngBytes(t)

	id := seedProduct(t, store, blobs, models.Variant{
		Attributes: map[string]string{"color": "red"},
		Price:      100, Quantity: 1,
		Images: []string{"old1.jpeg"}, SKU: "A", BarCode: "1",
	})
	store.replaceErr = apperr.New(apperr.Internal, "write failed")

	form := productForm{
		Variants: []variantInput{{
			Attributes: map[string]string{"color": "red"},
			Price:      floatPtr(100),
			Quantity:   intPtr(1),
			Images:     imagesPtr(),
		}},
		VariantsSet: true,
	}
	files := buildUploadForm(t, map[string][][]byte{
		"variant_images[0]": {img},
	})

	_, err := pipeline.Update(context.Background(), id, form, files)
	if err == nil {
		t.Fatal("expected update to fail")
	}

	if !blobs.Exists(blobPath("old1.jpeg")) {
		t.Fatal("old file must be intact after failed write")
	}
	files2 := storedFiles(t, blobs)
	if len(files2) != 1 {
		t.Fatalf("expected only the old file to remain, found %v", files2)
	}
}

func TestUpdateProductNotFoundRollsBackUploads(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)
	img := pngBytes(t)

	form := productForm{
		Variants:    []variantInput{{Attributes: map[string]string{"a": "b"}, Price: floatPtr(1), Quantity: intPtr(1)}},
		VariantsSet: true,
	}
	files := buildUploadForm(t, map[string][][]byte{
		"variant_images[0]": {img},
	})

	_, err := pipeline.Update(context.Background(), primitive.NewObjectID(), form, files)
	if apperr.KindOf(err) != apperr.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if files := storedFiles(t, blobs); len(files) != 0 {
		t.Fatalf("expected uploads rolled back, found %v", files)
	}
}

func TestUpdateProductReplacesMainImage(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)
	img := pngBytes(t)

	product := &models.Product{
		Title: "Classic Shirt", Slug: "classic-shirt",
		Status:    models.ProductStatusActive,
		MainImage: "main-old.jpeg",
	}
	id, _ := store.Insert(context.Background(), product)
	seedBlob(t, blobs, "main-old.jpeg")

	files := buildUploadForm(t, map[string][][]byte{
		"main_image": {img},
	})

	updated, err := pipeline.Update(context.Background(), id, productForm{}, files)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.MainImage == "" || updated.MainImage == "main-old.jpeg" {
		t.Fatalf("expected new main image, got %s", updated.MainImage)
	}
	if blobs.Exists(blobPath("main-old.jpeg")) {
		t.Fatal("expected superseded main image deleted after commit")
	}
	if !blobs.Exists(blobPath(updated.MainImage)) {
		t.Fatal("new main image must exist in blob store")
	}
}

func TestUpdateProductOmittedVariantsCarriedOver(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)

	id := seedProduct(t, store, blobs, models.Variant{
		Attributes: map[string]string{"color": "red"},
		Price:      100, Quantity: 1,
		Images: []string{"keep.jpeg"}, SKU: "A", BarCode: "1",
	})

	form := productForm{Title: "Renamed Shirt", TitleSet: true}
	updated, err := pipeline.Update(context.Background(), id, form, nil)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if len(updated.Variants) != 1 || updated.Variants[0].Images[0] != "keep.jpeg" {
		t.Fatalf("expected variants carried over, got %+v", updated.Variants)
	}
	if updated.Slug != "renamed-shirt" {
		t.Fatalf("expected slug regenerated, got %s", updated.Slug)
	}
	if !blobs.Exists(blobPath("keep.jpeg")) {
		t.Fatal("existing image must be untouched")
	}
}

func TestUpdateProductRenameDerivesSKUFromNewTitle(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)

	id := seedProduct(t, store, blobs, models.Variant{
		Attributes: map[string]string{"color": "red"},
		Price:      100, Quantity: 1,
		Images: []string{"keep.jpeg"}, SKU: "CS-RED-001", BarCode: "1",
	})

	form := productForm{
		Title: "Denim Jacket", TitleSet: true,
		Variants: []variantInput{
			{
				Attributes: map[string]string{"color": "red"},
				Price:      floatPtr(100), Quantity: intPtr(1),
				Images: imagesPtr("keep.jpeg"),
			},
			{
				Attributes: map[string]string{"color": "blue"},
				Price:      floatPtr(120), Quantity: intPtr(2),
			},
		},
		VariantsSet: true,
	}

	updated, err := pipeline.Update(context.Background(), id, form, nil)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Variants[0].SKU != "CS-RED-001" {
		t.Errorf("existing variant SKU = %s, want carried CS-RED-001", updated.Variants[0].SKU)
	}
	if updated.Variants[1].SKU != "DJ-BLU-002" {
		t.Errorf("new variant SKU = %s, want DJ-BLU-002 derived from the renamed title", updated.Variants[1].SKU)
	}
	if updated.Slug != "denim-jacket" {
		t.Errorf("slug = %s, want denim-jacket", updated.Slug)
	}
}

/* =======================
   DELETE
======================= */

func TestRemoveProductCascadesFileCleanup(t *testing.T) {
	blobs := storage.NewBlobStore(t.TempDir())
	store := newFakeProductStore()
	pipeline := newProductPipeline(store, blobs)

	id := seedProduct(t, store, blobs, models.Variant{
		Attributes: map[string]string{"color": "red"},
		Price:      100,
		Images:     []string{"v1.jpeg", "v2.jpeg"}, SKU: "A", BarCode: "1",
	})
	store.byID[id].MainImage = "main.jpeg"
	seedBlob(t, blobs, "main.jpeg")

	if err := pipeline.Remove(context.Background(), id); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	if _, ok := store.byID[id]; ok {
		t.Fatal("document must be deleted")
	}
	if files := storedFiles(t, blobs); len(files) != 0 {
		t.Fatalf("expected all referenced files removed, found %v", files)
	}
}
