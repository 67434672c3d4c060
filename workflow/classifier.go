package workflow

import "bitbucket.org/mmdatafocus/cdrr_triage/models"

// BucketCounts carries the per-tab badge numbers derived from a fetched
// record set. The store knows nothing about the two pending buckets, so these
// are always computed here.
type BucketCounts struct {
	All                 int `json:"all"`
	NonPics             int `json:"NON-PICS"`
	Pics                int `json:"PICS"`
	LetterAndCorrection int `json:"LETTER AND CORRECTION"`
	PendingFroo         int `json:"pending_froo"`
	PendingCdrrReview   int `json:"pending_cdrr_review"`
}

func (c BucketCounts) For(b models.Bucket) int {
	switch b {
	case models.BucketAll:
		return c.All
	case models.BucketNonPics:
		return c.NonPics
	case models.BucketPics:
		return c.Pics
	case models.BucketLetterAndCorrection:
		return c.LetterAndCorrection
	case models.BucketPendingFroo:
		return c.PendingFroo
	case models.BucketPendingCdrrReview:
		return c.PendingCdrrReview
	}
	return 0
}

// InBucket is the single source of truth for bucket membership.
//
//   - pending_froo: NON-PICS with no inspection sub-record yet
//   - pending_cdrr_review: inspected but secondary review not started
//   - category buckets: exact category match
func InBucket(r *models.Report, b models.Bucket) bool {
	if r == nil {
		return false
	}
	switch b {
	case models.BucketAll:
		return true
	case models.BucketPendingFroo:
		return r.Category == models.CategoryNonPics && !r.HasFrooReport()
	case models.BucketPendingCdrrReview:
		return r.HasFrooReport() && !r.HasCdrrSecondary()
	default:
		return r.Category == b.Category()
	}
}

// Classify derives every bucket count from the fetched set in one pass.
// When the fetch was paginated the counts are approximate: they describe the
// fetched page, not the store. Callers fetch wide for the derived buckets.
func Classify(reports []models.Report) BucketCounts {
	var counts BucketCounts
	for i := range reports {
		r := &reports[i]
		counts.All++
		switch r.Category {
		case models.CategoryNonPics:
			counts.NonPics++
		case models.CategoryPics:
			counts.Pics++
		case models.CategoryLetterAndCorrection:
			counts.LetterAndCorrection++
		}
		if InBucket(r, models.BucketPendingFroo) {
			counts.PendingFroo++
		}
		if InBucket(r, models.BucketPendingCdrrReview) {
			counts.PendingCdrrReview++
		}
	}
	return counts
}

// FilterBucket keeps the reports belonging to the bucket, preserving order.
func FilterBucket(reports []models.Report, b models.Bucket) []models.Report {
	if b == models.BucketAll {
		return reports
	}
	out := make([]models.Report, 0, len(reports))
	for i := range reports {
		if InBucket(&reports[i], b) {
			out = append(out, reports[i])
		}
	}
	return out
}
