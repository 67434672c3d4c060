package models

import "strings"

type ReportCategory string

const (
	CategoryNonPics             ReportCategory = "NON-PICS"
	CategoryPics                ReportCategory = "PICS"
	CategoryLetterAndCorrection ReportCategory = "LETTER AND CORRECTION"
)

func (c ReportCategory) IsValid() bool {
	switch c {
	case CategoryNonPics, CategoryPics, CategoryLetterAndCorrection:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "Pending"
	ReportStatusInProgress ReportStatus = "In Progress"
	ReportStatusCompleted  ReportStatus = "Completed"
	ReportStatusCancelled  ReportStatus = "Cancelled"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusPending, ReportStatusInProgress, ReportStatusCompleted, ReportStatusCancelled:
		return true
	}
	return false
}

// Bucket is a projection over the fetched record set, not a stored attribute.
// Category buckets map 1:1 to ReportCategory; the two pending buckets are
// derived from sub-record presence and cannot be requested from the store.
type Bucket string

const (
	BucketAll                 Bucket = "all"
	BucketNonPics             Bucket = "NON-PICS"
	BucketPics                Bucket = "PICS"
	BucketLetterAndCorrection Bucket = "LETTER AND CORRECTION"
	BucketPendingFroo         Bucket = "pending_froo"
	BucketPendingCdrrReview   Bucket = "pending_cdrr_review"
)

func (b Bucket) IsValid() bool {
	switch b {
	case BucketAll, BucketNonPics, BucketPics, BucketLetterAndCorrection,
		BucketPendingFroo, BucketPendingCdrrReview:
		return true
	}
	return false
}

// IsDerived reports whether the bucket is a client-side predicate rather than
// a category the store can filter on.
func (b Bucket) IsDerived() bool {
	return b == BucketPendingFroo || b == BucketPendingCdrrReview
}

// Category returns the store-side category filter for this bucket, empty for
// "all" and for derived buckets.
func (b Bucket) Category() ReportCategory {
	switch b {
	case BucketNonPics, BucketPics, BucketLetterAndCorrection:
		return ReportCategory(b)
	}
	return ""
}

func ParseBucket(raw string) Bucket {
	b := Bucket(strings.TrimSpace(raw))
	if !b.IsValid() {
		return BucketAll
	}
	return b
}

type Timeline string

const (
	TimelineWithin Timeline = "within"
	TimelineBeyond Timeline = "beyond"
)
