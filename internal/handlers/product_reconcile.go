package handlers

import "shopapi/internal/models"

// reconcileOutcome carries the per-variant final image lists and the set of
// filenames superseded by the update. Deletions are computed here but only
// executed after the document write is acknowledged.
type reconcileOutcome struct {
	Images    [][]string
	Deletions []string
}

// reconcileVariantImages diffs the previously persisted variants against the
// client-submitted list (already merged with this request's uploads).
//
// Rules, per variant index:
//   - indexes past the end of the incoming list were removed by the client:
//     all their images are queued for deletion;
//   - an existing image missing from the incoming list and not part of this
//     request's uploads was dropped: queued for deletion;
//   - the final list is the retained existing images in their stored order,
//     followed by the newly uploaded ones in upload order;
//   - an incoming variant with no images field at all keeps its stored list
//     untouched;
//   - a filename still referenced by any surviving variant is never deleted,
//     even if some other variant dropped it.
func reconcileVariantImages(existing []models.Variant, incoming []variantInput, uploaded map[string]bool) reconcileOutcome {
	outcome := reconcileOutcome{Images: make([][]string, len(incoming))}

	for i := len(incoming); i < len(existing); i++ {
		outcome.Deletions = append(outcome.Deletions, existing[i].Images...)
	}

	for i, in := range incoming {
		if i >= len(existing) {
			outcome.Images[i] = in.images()
			continue
		}

		if in.Images == nil {
			outcome.Images[i] = existing[i].Images
			continue
		}

		newSet := make(map[string]bool, len(in.images()))
		for _, name := range in.images() {
			newSet[name] = true
		}
		existingSet := make(map[string]bool, len(existing[i].Images))
		for _, name := range existing[i].Images {
			existingSet[name] = true
		}

		final := make([]string, 0, len(in.images()))
		for _, name := range existing[i].Images {
			if newSet[name] {
				final = append(final, name)
			} else if !uploaded[name] {
				outcome.Deletions = append(outcome.Deletions, name)
			}
		}
		for _, name := range in.images() {
			if uploaded[name] && !existingSet[name] {
				final = append(final, name)
			}
		}
		outcome.Images[i] = final
	}

	outcome.Deletions = pruneReferenced(outcome.Deletions, outcome.Images)
	return outcome
}

// pruneReferenced drops deletion candidates that a surviving variant still
// references, so removing an image from one variant cannot orphan another.
func pruneReferenced(deletions []string, finalImages [][]string) []string {
	if len(deletions) == 0 {
		return nil
	}

	referenced := map[string]bool{}
	for _, images := range finalImages {
		for _, name := range images {
			referenced[name] = true
		}
	}

	seen := map[string]bool{}
	pruned := make([]string, 0, len(deletions))
	for _, name := range deletions {
		if referenced[name] || seen[name] {
			continue
		}
		seen[name] = true
		pruned = append(pruned, name)
	}
	return pruned
}
