package usecase

import (
	"strings"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

type keywordRule struct {
	bucket   domain.Bucket
	keywords []string
}

// Rules are evaluated in order; the first rule with a matching keyword wins.
var defaultKeywordRules = []keywordRule{
	{bucket: domain.BucketCertificate, keywords: []string{"certificate", "completion", "certify"}},
	{bucket: domain.BucketIDCard, keywords: []string{"id card", "identity", "passport", "aadhaar", "pan card"}},
	{bucket: domain.BucketInvoice, keywords: []string{"invoice", "bill", "amount due", "total due"}},
}

// KeywordClassifier buckets text by case-insensitive substring matching.
type KeywordClassifier struct {
	rules    []keywordRule
	fallback domain.Bucket
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		rules:    defaultKeywordRules,
		fallback: domain.BucketOther,
	}
}

func (c *KeywordClassifier) Classify(text string) domain.Bucket {
	normalized := strings.ToLower(text)
	if strings.TrimSpace(normalized) == "" {
		return c.fallback
	}
	for _, rule := range c.rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.bucket
			}
		}
	}
	return c.fallback
}
