package handlers

import (
	"reflect"
	"sort"
	"testing"

	"shopapi/internal/models"
)

func imagesPtr(names ...string) *[]string {
	return &names
}

func TestReconcileDroppedImageIsDeleted(t *testing.T) {
	existing := []models.Variant{
		{Images: []string{"old1.jpeg", "old2.jpeg"}},
	}
	incoming := []variantInput{
		{Images: imagesPtr("old1.jpeg", "new1.jpeg")},
	}
	uploaded := map[string]bool{"new1.jpeg": true}

	outcome := reconcileVariantImages(existing, incoming, uploaded)

	want := []string{"old1.jpeg", "new1.jpeg"}
	if !reflect.DeepEqual(outcome.Images[0], want) {
		t.Fatalf("final images = %v, want %v", outcome.Images[0], want)
	}
	if !reflect.DeepEqual(outcome.Deletions, []string{"old2.jpeg"}) {
		t.Fatalf("deletions = %v, want [old2.jpeg]", outcome.Deletions)
	}
}

func TestReconcileRemovedTrailingVariants(t *testing.T) {
	existing := []models.Variant{
		{Images: []string{"a.jpeg"}},
		{Images: []string{"b1.jpeg", "b2.jpeg"}},
		{Images: []string{"c.jpeg"}},
	}
	incoming := []variantInput{
		{Images: imagesPtr("a.jpeg")},
	}

	outcome := reconcileVariantImages(existing, incoming, nil)

	if len(outcome.Images) != 1 {
		t.Fatalf("expected 1 surviving variant, got %d", len(outcome.Images))
	}
	got := append([]string(nil), outcome.Deletions...)
	sort.Strings(got)
	want := []string{"b1.jpeg", "b2.jpeg", "c.jpeg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("deletions = %v, want %v", got, want)
	}
}

func TestReconcileMissingImagesFieldKeepsStoredList(t *testing.T) {
	existing := []models.Variant{
		{Images: []string{"keep1.jpeg", "keep2.jpeg"}},
	}
	incoming := []variantInput{
		{Images: nil},
	}

	outcome := reconcileVariantImages(existing, incoming, nil)

	if !reflect.DeepEqual(outcome.Images[0], []string{"keep1.jpeg", "keep2.jpeg"}) {
		t.Fatalf("expected stored list untouched, got %v", outcome.Images[0])
	}
	if len(outcome.Deletions) != 0 {
		t.Fatalf("expected no deletions, got %v", outcome.Deletions)
	}
}

func TestReconcileRetainedOrderThenUploadOrder(t *testing.T) {
	existing := []models.Variant{
		{Images: []string{"e1.jpeg", "e2.jpeg", "e3.jpeg"}},
	}
	// Client reverses retained order in its payload; stored order wins for
	// the retained part, upload order for the new part.
	incoming := []variantInput{
		{Images: imagesPtr("e3.jpeg", "n2.jpeg", "e1.jpeg", "n1.jpeg")},
	}
	uploaded := map[string]bool{"n1.jpeg": true, "n2.jpeg": true}

	outcome := reconcileVariantImages(existing, incoming, uploaded)

	want := []string{"e1.jpeg", "e3.jpeg", "n2.jpeg", "n1.jpeg"}
	if !reflect.DeepEqual(outcome.Images[0], want) {
		t.Fatalf("final images = %v, want %v", outcome.Images[0], want)
	}
	if !reflect.DeepEqual(outcome.Deletions, []string{"e2.jpeg"}) {
		t.Fatalf("deletions = %v, want [e2.jpeg]", outcome.Deletions)
	}
}

func TestReconcileSharedImageNotOrphaned(t *testing.T) {
	existing := []models.Variant{
		{Images: []string{"shared.jpeg"}},
		{Images: []string{"shared.jpeg", "own.jpeg"}},
	}
	// Variant 0 drops the shared file, variant 1 keeps it.
	incoming := []variantInput{
		{Images: imagesPtr()},
		{Images: imagesPtr("shared.jpeg", "own.jpeg")},
	}

	outcome := reconcileVariantImages(existing, incoming, nil)

	if len(outcome.Deletions) != 0 {
		t.Fatalf("expected shared file to survive, deletions = %v", outcome.Deletions)
	}
}

func TestReconcileNewVariantBeyondExisting(t *testing.T) {
	existing := []models.Variant{
		{Images: []string{"a.jpeg"}},
	}
	incoming := []variantInput{
		{Images: imagesPtr("a.jpeg")},
		{Images: imagesPtr("fresh.jpeg")},
	}
	uploaded := map[string]bool{"fresh.jpeg": true}

	outcome := reconcileVariantImages(existing, incoming, uploaded)

	if !reflect.DeepEqual(outcome.Images[1], []string{"fresh.jpeg"}) {
		t.Fatalf("new variant images = %v, want [fresh.jpeg]", outcome.Images[1])
	}
	if len(outcome.Deletions) != 0 {
		t.Fatalf("expected no deletions, got %v", outcome.Deletions)
	}
}

func TestReconcileDuplicateDeletionsCollapsed(t *testing.T) {
	existing := []models.Variant{
		{Images: []string{"dup.jpeg"}},
		{Images: []string{"dup.jpeg"}},
	}
	incoming := []variantInput{
		{Images: imagesPtr()},
		{Images: imagesPtr()},
	}

	outcome := reconcileVariantImages(existing, incoming, nil)

	if !reflect.DeepEqual(outcome.Deletions, []string{"dup.jpeg"}) {
		t.Fatalf("expected single deletion entry, got %v", outcome.Deletions)
	}
}
