package entity

// TextQuality marks how document text was obtained.
type TextQuality string

const (
	QualityNative        TextQuality = "native"
	QualityOCR           TextQuality = "ocr"
	QualityLowConfidence TextQuality = "low_confidence"
)

// ExtractionResult is the internal hand-off between text extraction and the
// downstream validation/extraction stages. Not persisted.
type ExtractionResult struct {
	Text    string
	Quality TextQuality
	Pages   int
}
