package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"shopapi/internal/apperr"
	"shopapi/internal/imaging"
	"shopapi/internal/storage"
)

const productImageFolder = "images/products"

const fieldMainImage = "main_image"

var variantImagesField = regexp.MustCompile(`^variant_images\[(\d+)\]$`)

type uploadRole string

const (
	roleMain    uploadRole = "main"
	roleVariant uploadRole = "variant"
)

// manifestEntry records one file written during intake. The manifest drives
// rollback: every entry is deleted when the document write does not happen.
type manifestEntry struct {
	Role         uploadRole
	VariantIndex int
	Filename     string
}

/* =======================
   FILENAME ALLOCATOR
======================= */

// nameAllocator hands out request-unique filenames. The per-(role,index)
// counter keeps names distinct when several files share a field; the
// millisecond stamp separates concurrent requests.
type nameAllocator struct {
	stamp int64
	seq   map[string]int
}

func newNameAllocator() *nameAllocator {
	return &nameAllocator{
		stamp: time.Now().UnixMilli(),
		seq:   map[string]int{},
	}
}

func (a *nameAllocator) allocate(role uploadRole, index int) string {
	key := fmt.Sprintf("%s:%d", role, index)
	a.seq[key]++

	if role == roleMain {
		return fmt.Sprintf("product-%d-%d.jpeg", a.stamp, a.seq[key])
	}
	return fmt.Sprintf("product-variant-%d-%d-%d.jpeg", a.stamp, index, a.seq[key])
}

/* =======================
   INTAKE & CLASSIFICATION
======================= */

// intakeResult is the manifest plus the classified view the merge and
// reconcile steps consume.
type intakeResult struct {
	Manifest  []manifestEntry
	MainImage string
	ByVariant map[int][]string
}

func (r intakeResult) uploadedFilenames() []string {
	names := make([]string, 0, len(r.Manifest))
	for _, entry := range r.Manifest {
		names = append(names, entry.Filename)
	}
	return names
}

func (r intakeResult) uploadedSet() map[string]bool {
	set := make(map[string]bool, len(r.Manifest))
	for _, entry := range r.Manifest {
		set[entry.Filename] = true
	}
	return set
}

// processUploads classifies every uploaded file, transforms it to a catalog
// thumbnail and writes it to the blob store immediately. On error the partial
// result is still returned so the caller can roll back what was written.
// Unrecognized field names are skipped.
func processUploads(form *multipart.Form, blobs *storage.BlobStore) (intakeResult, error) {
	result := intakeResult{ByVariant: map[int][]string{}}
	if form == nil || len(form.File) == 0 {
		return result, nil
	}

	alloc := newNameAllocator()

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		role := roleMain
		variantIndex := 0

		if field != fieldMainImage {
			match := variantImagesField.FindStringSubmatch(field)
			if match == nil {
				continue
			}
			index, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			role = roleVariant
			variantIndex = index
		}

		for _, header := range form.File[field] {
			filename, err := storeUpload(blobs, alloc, role, variantIndex, header)
			if err != nil {
				return result, err
			}

			result.Manifest = append(result.Manifest, manifestEntry{
				Role:         role,
				VariantIndex: variantIndex,
				Filename:     filename,
			})
			if role == roleMain {
				result.MainImage = filename
			} else {
				result.ByVariant[variantIndex] = append(result.ByVariant[variantIndex], filename)
			}
		}
	}

	return result, nil
}

func storeUpload(blobs *storage.BlobStore, alloc *nameAllocator, role uploadRole, index int, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, err, "opening uploaded file failed")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, err, "reading uploaded file failed")
	}

	thumb, err := imaging.Thumbnail(data)
	if err != nil {
		return "", err
	}

	filename := alloc.allocate(role, index)
	if err := blobs.Save(productImageFolder, filename, thumb); err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, err, "saving image failed")
	}
	log.Printf("[UPLOAD] stored %s (%s field=%s)", filename, role, header.Filename)
	return filename, nil
}

/* =======================
   MERGE
======================= */

// mergeUploads appends newly uploaded images to the variants they were
// tagged for, after any names the client retained. Uploads addressed to a
// variant index the payload does not contain are a client error: merging has
// no target and committing would orphan the file.
func mergeUploads(form *productForm, intake intakeResult) error {
	if intake.MainImage != "" {
		form.MainImage = intake.MainImage
		form.MainImageSet = true
	}

	if len(intake.ByVariant) == 0 {
		return nil
	}
	if !form.VariantsSet {
		return apperr.New(apperr.ValidationFailed, "variants field is required when uploading variant images")
	}

	for index, uploads := range intake.ByVariant {
		if index < 0 || index >= len(form.Variants) {
			return apperr.New(apperr.ValidationFailed, "no variant at index %d for uploaded images", index)
		}
		merged := append(form.Variants[index].images(), uploads...)
		form.Variants[index].Images = &merged
	}
	return nil
}

// requireVariantImages enforces the create-time invariant: every variant
// ends up with at least one image, uploaded or retained.
func requireVariantImages(variants []variantInput) error {
	for i, v := range variants {
		if len(v.images()) == 0 {
			return apperr.New(apperr.ValidationFailed, "variant %d must have at least one image", i)
		}
	}
	return nil
}

// blobPath maps a stored filename to its path inside the blob store.
func blobPath(filename string) string {
	return path.Join(productImageFolder, filename)
}
