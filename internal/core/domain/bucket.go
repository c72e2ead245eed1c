package domain

import "strings"

// Bucket is the output folder a file is sorted into. Besides the fixed
// values below, any raw extension string is a valid lazily-created bucket.
type Bucket string

const (
	BucketCertificate     Bucket = "certificate"
	BucketIDCard          Bucket = "id_card"
	BucketInvoice         Bucket = "invoice"
	BucketExecutable      Bucket = "executable"
	BucketArchive         Bucket = "archive"
	BucketOther           Bucket = "other"
	BucketPDFOther        Bucket = "pdf_other"
	BucketPDFError        Bucket = "pdf_error"
	BucketExtractionError Bucket = "extraction_error"
	BucketUnknown         Bucket = "unknown"
)

var fixedBuckets = map[Bucket]struct{}{
	BucketCertificate:     {},
	BucketIDCard:          {},
	BucketInvoice:         {},
	BucketExecutable:      {},
	BucketArchive:         {},
	BucketOther:           {},
	BucketPDFOther:        {},
	BucketPDFError:        {},
	BucketExtractionError: {},
	BucketUnknown:         {},
}

// IsExtension reports whether b is a lazily-created raw extension bucket
// rather than one of the fixed buckets.
func (b Bucket) IsExtension() bool {
	_, fixed := fixedBuckets[b]
	return !fixed
}

// ExtensionBucket returns the lazily-created bucket for a raw extension.
// Path separators are replaced so the bucket is always one folder.
func ExtensionBucket(ext string) Bucket {
	ext = strings.NewReplacer("/", "_", "\\", "_").Replace(ext)
	if ext == "" || ext == "." || ext == ".." {
		return BucketUnknown
	}
	return Bucket(ext)
}

// IsUnclassified reports whether the bucket is one of the "no keyword matched" buckets.
func (b Bucket) IsUnclassified() bool {
	return b == BucketOther || b == BucketPDFOther
}
